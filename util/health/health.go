// Package health serves liveness and readiness probes
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	// AlivePath always answers 200 while the process serves HTTP
	AlivePath = "/health/alive"
	// ReadyPath answers 200 once all readiness checks pass, 503 otherwise
	ReadyPath = "/health/ready"

	shutdownTimeout = time.Second * 5
)

// Flag is a readiness check that passes once set
type Flag struct {
	name string
	set  atomic.Bool
}

// NewFlag creates an unset flag
func NewFlag(name string) *Flag {
	return &Flag{name: name}
}

// Set marks the flag ready
func (f *Flag) Set() {
	f.set.Store(true)
}

// Check implements healthz.Checker
func (f *Flag) Check(*http.Request) error {
	if !f.set.Load() {
		return fmt.Errorf("%s not ready", f.name)
	}
	return nil
}

// Checks is a set of named readiness checks safe for concurrent use
type Checks struct {
	mu     sync.RWMutex
	checks map[string]healthz.Checker
}

// Add registers a named readiness check
func (c *Checks) Add(name string, check healthz.Checker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checks == nil {
		c.checks = make(map[string]healthz.Checker)
	}
	c.checks[name] = check
}

// failing returns names of checks that did not pass, sorted
func (c *Checks) failing(r *http.Request) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var failed []string
	for name, check := range c.checks {
		if err := check(r); err != nil {
			log.FromContext(r.Context()).V(1).Info("readiness check failed", "check", name, "error", err.Error())
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// NewHandler creates the probe router
func NewHandler(checks *Checks) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(AlivePath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get(ReadyPath, func(w http.ResponseWriter, req *http.Request) {
		if failed := checks.failing(req); len(failed) > 0 {
			http.Error(w, "not ready: "+strings.Join(failed, ", "), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve runs the probe server until ctx is cancelled
func Serve(ctx context.Context, addr string, checks *Checks) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(checks),
		ReadHeaderTimeout: time.Second * 5,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health server shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
