package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	discoveryv1 "k8s.io/api/discovery/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/navikt/statusplattform-operator/controllers/authority"
	"github.com/navikt/statusplattform-operator/controllers/endpointslice"
	"github.com/navikt/statusplattform-operator/util/health"
)

const (
	leaderElectionID = "statusplattform-operator.nais.io"

	checkKubernetes = "kubernetes"
	checkInformers  = "informers"
)

type controllerCmd struct {
	controllerOpts

	cobra.Command
}

// ControllerCommand creates command to run the EndpointSlice controller
func ControllerCommand() (*cobra.Command, error) {
	cmd := controllerCmd{
		Command: cobra.Command{
			Use:   "controller",
			Short: "reports EndpointSlice readiness to the status registry",
		}}
	cmd.RunE = cmd.exec
	if err := cmd.setupFlags(); err != nil {
		return nil, err
	}
	return &cmd.Command, nil
}

func (s *controllerCmd) setupFlags() error {
	flags := s.PersistentFlags()
	s.controllerOpts.setupFlags(flags)
	if err := flags.MarkHidden(debug); err != nil {
		return err
	}
	return viperWalk(flags, envAliases)
}

func (s *controllerCmd) exec(*cobra.Command, []string) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	setupLogger(s.Debug, s.LogFormat)
	ctx := ctrl.SetupSignalHandler()

	checks := new(health.Checks)
	mgr, err := s.buildManager(ctx, checks)
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return health.Serve(ctx, s.ProbeAddr, checks) })
	eg.Go(func() error { return mgr.Start(ctx) })

	return eg.Wait()
}

func (s *controllerCmd) buildManager(ctx context.Context, checks *health.Checks) (ctrl.Manager, error) {
	logger := log.FromContext(ctx)

	scheme, err := getScheme()
	if err != nil {
		return nil, fmt.Errorf("get scheme: %w", err)
	}
	cacheOpts, err := s.getCacheOptions()
	if err != nil {
		return nil, fmt.Errorf("cache options: %w", err)
	}
	gvk, err := s.getApplicationGVK()
	if err != nil {
		return nil, err
	}

	kubernetes := health.NewFlag(checkKubernetes)
	informers := health.NewFlag(checkInformers)
	checks.Add(checkKubernetes, kubernetes.Check)
	checks.Add(checkInformers, informers.Check)

	cfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("get k8s api config: %w", err)
	}
	mgr, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme:                  scheme,
		Cache:                   cacheOpts,
		Metrics:                 metricsserver.Options{BindAddress: s.MetricsAddr},
		LeaderElection:          s.LeaderElection,
		LeaderElectionID:        leaderElectionID,
		GracefulShutdownTimeout: &s.GracefulShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create controller manager: %w", err)
	}

	lookup, err := authority.NewApplicationLookup(mgr.GetRESTMapper(), gvk)
	if err != nil {
		return nil, fmt.Errorf("application lookup: %w", err)
	}
	kubernetes.Set()
	logger.Info("resolved application kind", "gvk", lookup.GroupVersionKind().String())

	registry, err := s.getRegistryClient()
	if err != nil {
		return nil, fmt.Errorf("status registry client: %w", err)
	}

	opts, err := s.getEndpointSliceOptions()
	if err != nil {
		return nil, fmt.Errorf("endpoint slice controller opts: %w", err)
	}
	if err := endpointslice.NewEndpointSliceController(mgr, registry, lookup, opts...); err != nil {
		return nil, err
	}

	synced := &cacheSyncedRunnable{
		cache:   mgr.GetCache(),
		flag:    informers,
		objects: []client.Object{&discoveryv1.EndpointSlice{}, lookup.NewObject()},
	}
	if err := mgr.Add(synced); err != nil {
		return nil, fmt.Errorf("cache sync readiness: %w", err)
	}
	return mgr, nil
}

// cacheSyncedRunnable sets the flag once informers of the watched objects are synced.
// Informers are requested here as the controller sources only start after leader election.
type cacheSyncedRunnable struct {
	cache   cache.Cache
	flag    *health.Flag
	objects []client.Object
}

var _ manager.LeaderElectionRunnable = (*cacheSyncedRunnable)(nil)

// Start implements manager.Runnable
func (r *cacheSyncedRunnable) Start(ctx context.Context) error {
	for _, obj := range r.objects {
		if _, err := r.cache.GetInformer(ctx, obj, cache.BlockUntilSynced(true)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("informer for %T: %w", obj, err)
		}
	}
	if !r.cache.WaitForCacheSync(ctx) {
		return nil
	}
	r.flag.Set()
	log.FromContext(ctx).Info("informer caches synced")
	return nil
}

// NeedLeaderElection implements manager.LeaderElectionRunnable
func (r *cacheSyncedRunnable) NeedLeaderElection() bool {
	return false
}
