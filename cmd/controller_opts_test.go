package cmd

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	discoveryv1 "k8s.io/api/discovery/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func parseOptions(t *testing.T, arguments ...string) *controllerOpts {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts := new(controllerOpts)
	opts.setupFlags(flags)
	require.NoError(t, flags.Parse(arguments))
	return opts
}

func TestControllerOptionsDefaults(t *testing.T) {
	opts := parseOptions(t, "--api-key", "secret")
	require.NoError(t, opts.Validate())

	assert.Equal(t, "http://portalserver", opts.BaseURL)
	assert.Equal(t, "nais.io/v1alpha1/Application", opts.ApplicationGVK)
	assert.Equal(t, 4, opts.MaxConcurrentReconciles)
	assert.Equal(t, time.Second*10, opts.RegistryTimeout)
	assert.Equal(t, time.Second*10, opts.RegistryMaxRetry)
	assert.Equal(t, ":8080", opts.ProbeAddr)
	assert.Equal(t, ":9090", opts.MetricsAddr)
	assert.Equal(t, time.Second*30, opts.GracefulShutdownTimeout)
	assert.Equal(t, "json", opts.LogFormat)

	gvk, err := opts.getApplicationGVK()
	require.NoError(t, err)
	assert.Equal(t, schema.GroupVersionKind{Group: "nais.io", Version: "v1alpha1", Kind: "Application"}, gvk)

	_, err = opts.getRegistryClient()
	assert.NoError(t, err)
}

func TestControllerOptionsValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{"missing api key", nil},
		{"bad base url", []string{"--api-key=k", "--base-url=portalserver"}},
		{"zero workers", []string{"--api-key=k", "--max-concurrent-reconciles=0"}},
		{"zero timeout", []string{"--api-key=k", "--registry-timeout=0"}},
		{"negative retry", []string{"--api-key=k", "--registry-max-retry=-1s"}},
		{"bad probe address", []string{"--api-key=k", "--health-probe-bind-address=nowhere"}},
		{"bad log format", []string{"--api-key=k", "--log-format=xml"}},
		{"bad gvk", []string{"--api-key=k", "--application-group-version-kind=Application"}},
		{"bad namespace", []string{"--api-key=k", "--excluded-namespaces=Kube_System"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, parseOptions(t, tc.args...).Validate())
		})
	}

	opts := parseOptions(t, "--api-key=k", "--registry-max-retry=0", "--log-format=console")
	assert.NoError(t, opts.Validate())
}

func TestFlagsFromEnvironment(t *testing.T) {
	for k, v := range map[string]string{
		envName(apiKey):                  "secret",
		envName(baseURL):                 "https://status.example.com",
		envName(excludedNamespaces):      "kube-system,nais-system",
		envName(maxConcurrentReconciles): "8",
		envName(registryTimeout):         "3s",
		envName(debug):                   "true",
	} {
		t.Setenv(k, v)
	}

	cmd := new(controllerCmd)
	require.NoError(t, cmd.setupFlags())
	assert.Equal(t, "secret", cmd.APIKey)
	assert.Equal(t, "https://status.example.com", cmd.BaseURL)
	assert.Equal(t, []string{"kube-system", "nais-system"}, cmd.ExcludedNamespaces)
	assert.Equal(t, 8, cmd.MaxConcurrentReconciles)
	assert.Equal(t, time.Second*3, cmd.RegistryTimeout)
	assert.True(t, cmd.Debug)
}

func TestFlagsFromLegacyEnvironment(t *testing.T) {
	t.Setenv("swagger-api-key", "legacy-secret")
	t.Setenv("PLATFORM_NAMESPACES", "nais-system")

	cmd := new(controllerCmd)
	require.NoError(t, cmd.setupFlags())
	assert.Equal(t, "legacy-secret", cmd.APIKey)
	assert.Equal(t, []string{"nais-system"}, cmd.ExcludedNamespaces)
}

func TestCacheOptions(t *testing.T) {
	opts := parseOptions(t, "--api-key=k", "--excluded-namespaces=nais-system,kube-system")
	copts, err := opts.getCacheOptions()
	require.NoError(t, err)
	require.Len(t, copts.ByObject, 1)

	for obj, by := range copts.ByObject {
		assert.IsType(t, &discoveryv1.EndpointSlice{}, obj)
		assert.True(t, by.Label.Matches(labels.Set{"app": "checkout", "team": "payments"}))
		assert.True(t, by.Label.Matches(labels.Set{"app": "checkout", "team": ""}))
		assert.False(t, by.Label.Matches(labels.Set{"app": "checkout"}))
		assert.Equal(t, "metadata.namespace!=kube-system,metadata.namespace!=nais-system", by.Field.String())
	}

	opts = parseOptions(t, "--api-key=k")
	copts, err = opts.getCacheOptions()
	require.NoError(t, err)
	for _, by := range copts.ByObject {
		assert.True(t, by.Field.Empty())
	}
}

func TestGVKString(t *testing.T) {
	assert.Equal(t, "v1/Service", gvkString(schema.GroupVersionKind{Version: "v1", Kind: "Service"}))
	assert.Equal(t, "nais.io/v1alpha1/Application",
		gvkString(schema.GroupVersionKind{Group: "nais.io", Version: "v1alpha1", Kind: "Application"}))
}
