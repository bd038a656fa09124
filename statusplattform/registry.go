package statusplattform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var _ Registry = (*Client)(nil)

// ResolveOrCreate looks the service up by name and creates it when it is not known to the registry.
// Concurrent resolutions of the same name share a single request sequence,
// which is not cancelled when one of the callers goes away.
func (c *Client) ResolveOrCreate(ctx context.Context, name, team string) (uuid.UUID, error) {
	ch := c.resolving.DoChan(name, func() (any, error) {
		return c.resolveOrCreate(context.WithoutCancel(ctx), name, team)
	})

	select {
	case <-ctx.Done():
		return uuid.Nil, fmt.Errorf("%w: resolve %s: %w", ErrRegistryUnavailable, name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return uuid.Nil, res.Err
		}
		return res.Val.(uuid.UUID), nil
	}
}

// resolveOrCreate retries lookup and create as a single step.
// A create is never repeated without a lookup in between.
func (c *Client) resolveOrCreate(ctx context.Context, name, team string) (uuid.UUID, error) {
	logger := log.FromContext(ctx).WithValues("service", name)

	var id uuid.UUID
	err := c.retry(ctx, func() error {
		ids, err := c.listServices(ctx)
		if err != nil {
			return err
		}
		if known, ok := ids[name]; ok {
			logger.V(1).Info("service known to registry", "id", known)
			id = known
			return nil
		}

		created, err := c.createService(ctx, NewServiceDto(name, team))
		if err != nil {
			return err
		}
		logger.Info("created service in registry", "id", created, "team", team)
		id = created
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: resolve %s: %w", ErrRegistryUnavailable, name, err)
	}
	return id, nil
}

// listServices returns name to id of all services that carry an id
func (c *Client) listServices(ctx context.Context) (map[string]uuid.UUID, error) {
	var refs []ServiceRef
	if err := c.send(ctx, http.MethodGet, servicesEndpoint, nil, &refs); err != nil {
		return nil, err
	}

	ids := make(map[string]uuid.UUID, len(refs))
	for _, ref := range refs {
		if !ref.ID.Valid {
			continue
		}
		ids[ref.Name] = ref.ID.UUID
	}
	return ids, nil
}

// createService makes a single attempt
func (c *Client) createService(ctx context.Context, svc ServiceDto) (uuid.UUID, error) {
	var refs serviceRefs
	if err := c.send(ctx, http.MethodPost, serviceEndpoint, svc, &refs); err != nil {
		return uuid.Nil, err
	}
	id, err := refs.pick(svc.Name)
	if err != nil {
		return uuid.Nil, backoff.Permanent(fmt.Errorf("create service: %w", err))
	}
	return id, nil
}

// ReportStatus posts a status record for the service.
// The response body is ignored.
func (c *Client) ReportStatus(ctx context.Context, id uuid.UUID, status Status, description string) error {
	return c.do(ctx, http.MethodPost, serviceStatusEndpoint, RecordDto{
		ServiceID:   id,
		Status:      status,
		Source:      SourceGCPPoll,
		Description: description,
	}, nil)
}
