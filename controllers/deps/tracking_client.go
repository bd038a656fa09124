package deps

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"

	"github.com/navikt/statusplattform-operator/model"
)

type trackingClient struct {
	client.Client
	deps  model.Dependencies
	owner model.Key
}

// NewClient creates a client that records every object requested with Get
// as a dependency of owner, whether it was found or not
func NewClient(c client.Client, d model.Dependencies, owner model.Key) client.Client {
	return &trackingClient{Client: c, deps: d, owner: owner}
}

// Get retrieves an obj for the given object key from the Kubernetes Cluster.
func (c *trackingClient) Get(ctx context.Context, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
	gvk, err := apiutil.GVKForObject(obj, c.Scheme())
	if err != nil {
		return fmt.Errorf("dependency key %s: %w", key, err)
	}
	if gvk.Kind == "" {
		return fmt.Errorf("dependency key %s: no kind", key)
	}

	c.deps.Add(c.owner, model.Key{Kind: gvk.Kind, NamespacedName: key})
	return c.Client.Get(ctx, key, obj, opts...)
}
