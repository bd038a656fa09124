package cmd

import (
	"fmt"
	"time"

	validate "github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	discoveryv1 "k8s.io/api/discovery/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/selection"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/navikt/statusplattform-operator/controllers/authority"
	"github.com/navikt/statusplattform-operator/controllers/endpointslice"
	"github.com/navikt/statusplattform-operator/model"
	"github.com/navikt/statusplattform-operator/statusplattform"
	"github.com/navikt/statusplattform-operator/util"
)

type controllerOpts struct {
	APIKey                  string        `validate:"required"`
	BaseURL                 string        `validate:"required,url"`
	ExcludedNamespaces      []string
	ApplicationGVK          string        `validate:"required"`
	MaxConcurrentReconciles int           `validate:"min=1"`
	RegistryTimeout         time.Duration `validate:"min=1ms"`
	RegistryMaxRetry        time.Duration `validate:"min=0s"`
	MetricsAddr             string        `validate:"required"`
	ProbeAddr               string        `validate:"required,hostname_port"`
	GracefulShutdownTimeout time.Duration `validate:"min=0s"`
	LeaderElection          bool
	Debug                   bool
	LogFormat               string `validate:"oneof=json console"`
}

const (
	apiKey                  = "api-key"
	baseURL                 = "base-url"
	excludedNamespaces      = "excluded-namespaces"
	applicationGVK          = "application-group-version-kind"
	maxConcurrentReconciles = "max-concurrent-reconciles"
	registryTimeout         = "registry-timeout"
	registryMaxRetry        = "registry-max-retry"
	metricsBindAddress      = "metrics-bind-address"
	healthProbeBindAddress  = "health-probe-bind-address"
	gracefulShutdownTimeout = "graceful-shutdown-timeout"
	leaderElect             = "leader-elect"
	debug                   = "debug"
	logFormat               = "log-format"

	defaultBaseURL = "http://portalserver"
)

// envAliases are environment variables understood in addition to the SCREAMING_SNAKE flag names
var envAliases = map[string][]string{
	apiKey:             {"swagger-api-key"},
	excludedNamespaces: {"PLATFORM_NAMESPACES"},
}

func (s *controllerOpts) setupFlags(flags *pflag.FlagSet) {
	flags.StringVar(&s.APIKey, apiKey, "", "status registry api key")
	flags.StringVar(&s.BaseURL, baseURL, defaultBaseURL, "status registry base url")
	flags.StringSliceVar(&s.ExcludedNamespaces, excludedNamespaces, nil, "namespaces whose EndpointSlices are never reported")
	flags.StringVar(&s.ApplicationGVK, applicationGVK, gvkString(authority.DefaultApplicationGVK),
		"group/version/Kind of the resource that marks an application as managed")
	flags.IntVar(&s.MaxConcurrentReconciles, maxConcurrentReconciles, endpointslice.DefaultMaxConcurrentReconciles,
		"number of EndpointSlices reconciled in parallel")
	flags.DurationVar(&s.RegistryTimeout, registryTimeout, statusplattform.DefaultRequestTimeout, "status registry request timeout")
	flags.DurationVar(&s.RegistryMaxRetry, registryMaxRetry, statusplattform.DefaultMaxRetryDuration,
		"max time spent retrying a failed status registry request, 0 disables retries")
	flags.StringVar(&s.MetricsAddr, metricsBindAddress, ":9090", "The address the metric endpoint binds to.")
	flags.StringVar(&s.ProbeAddr, healthProbeBindAddress, ":8080", "The address the probe endpoint binds to.")
	flags.DurationVar(&s.GracefulShutdownTimeout, gracefulShutdownTimeout, time.Second*30,
		"time to wait for in-flight reconciliations on shutdown")
	flags.BoolVar(&s.LeaderElection, leaderElect, false, "enable leader election, required when running more than one replica")
	flags.BoolVar(&s.Debug, debug, false, "enable debug logging")
	flags.StringVar(&s.LogFormat, logFormat, logFormatJSON, "log format, json or console")
}

// Validate checks the options
func (s *controllerOpts) Validate() error {
	if err := validate.New().Struct(s); err != nil {
		return err
	}
	if _, err := s.getApplicationGVK(); err != nil {
		return err
	}
	_, err := s.getExcludedNamespaces()
	return err
}

func (s *controllerOpts) getApplicationGVK() (schema.GroupVersionKind, error) {
	gvk, err := util.ParseGroupVersionKind(s.ApplicationGVK)
	if err != nil {
		return gvk, fmt.Errorf("%s=%s: %w", applicationGVK, s.ApplicationGVK, err)
	}
	return gvk, nil
}

func (s *controllerOpts) getExcludedNamespaces() ([]string, error) {
	ns, err := util.ParseNamespaceList(s.ExcludedNamespaces)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", excludedNamespaces, err)
	}
	return ns, nil
}

func (s *controllerOpts) getEndpointSliceOptions() ([]endpointslice.Option, error) {
	ns, err := s.getExcludedNamespaces()
	if err != nil {
		return nil, err
	}
	return []endpointslice.Option{
		endpointslice.WithExcludedNamespaces(ns),
		endpointslice.WithMaxConcurrentReconciles(s.MaxConcurrentReconciles),
	}, nil
}

// getCacheOptions restricts the EndpointSlice informer to labelled slices outside excluded namespaces
func (s *controllerOpts) getCacheOptions() (cache.Options, error) {
	sel := labels.NewSelector()
	for _, key := range []string{model.AppLabel, model.TeamLabel} {
		req, err := labels.NewRequirement(key, selection.Exists, nil)
		if err != nil {
			return cache.Options{}, fmt.Errorf("label selector: %w", err)
		}
		sel = sel.Add(*req)
	}

	ns, err := s.getExcludedNamespaces()
	if err != nil {
		return cache.Options{}, err
	}
	fieldSel := fields.Everything()
	if len(ns) > 0 {
		sels := make([]fields.Selector, 0, len(ns))
		for _, n := range ns {
			sels = append(sels, fields.OneTermNotEqualSelector("metadata.namespace", n))
		}
		fieldSel = fields.AndSelectors(sels...)
	}

	return cache.Options{
		ByObject: map[client.Object]cache.ByObject{
			&discoveryv1.EndpointSlice{}: {Label: sel, Field: fieldSel},
		},
	}, nil
}

func (s *controllerOpts) getRegistryClient() (*statusplattform.Client, error) {
	return statusplattform.NewClient(s.BaseURL, s.APIKey,
		statusplattform.WithRequestTimeout(s.RegistryTimeout),
		statusplattform.WithMaxRetryDuration(s.RegistryMaxRetry),
	)
}

func gvkString(gvk schema.GroupVersionKind) string {
	if gvk.Group == "" {
		return gvk.Version + "/" + gvk.Kind
	}
	return gvk.Group + "/" + gvk.Version + "/" + gvk.Kind
}
