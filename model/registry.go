package model

import (
	"sync"

	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Key is a dependency key
type Key struct {
	Kind string
	types.NamespacedName
}

// ObjectKey returns the dependency key of an object of a given kind
func ObjectKey(kind string, obj client.Object) Key {
	return Key{Kind: kind, NamespacedName: client.ObjectKeyFromObject(obj)}
}

// Dependencies keeps track of which objects were consulted while reconciling another one,
// i.e. an EndpointSlice depends on the Application it was validated against,
// so that a later change of the Application may trigger the slice again.
// Links are symmetric; no subordination is tracked.
type Dependencies interface {
	// Add registers a dependency between x,y
	Add(x, y Key)
	// Deps returns all keys linked to x
	Deps(x Key) []Key
	// DepsOfKind returns keys linked to x that are of a particular kind
	DepsOfKind(x Key, kind string) []Key
	// DeleteCascade removes all links of x
	DeleteCascade(x Key)
}

type dependencyItems map[Key]map[Key]bool

type dependencies struct {
	sync.RWMutex
	items dependencyItems
}

// NewDependencies creates an empty tracker safe for concurrent use
func NewDependencies() Dependencies {
	return &dependencies{
		items: make(dependencyItems),
	}
}

func (d *dependencies) Add(x, y Key) {
	d.Lock()
	defer d.Unlock()

	d.items.link(x, y)
	d.items.link(y, x)
}

func (items dependencyItems) link(x, y Key) {
	dx := items[x]
	if dx == nil {
		dx = make(map[Key]bool)
		items[x] = dx
	}
	dx[y] = true
}

func (items dependencyItems) unlink(x, y Key) {
	dx := items[x]
	delete(dx, y)
	if len(dx) == 0 {
		delete(items, x)
	}
}

func (d *dependencies) Deps(x Key) []Key {
	return d.DepsOfKind(x, "")
}

// DepsOfKind with an empty kind matches every kind
func (d *dependencies) DepsOfKind(x Key, kind string) []Key {
	d.RLock()
	defer d.RUnlock()

	dx := d.items[x]
	keys := make([]Key, 0, len(dx))
	for k := range dx {
		if kind == "" || k.Kind == kind {
			keys = append(keys, k)
		}
	}
	return keys
}

func (d *dependencies) DeleteCascade(x Key) {
	d.Lock()
	defer d.Unlock()

	for k := range d.items[x] {
		d.items.unlink(x, k)
		d.items.unlink(k, x)
	}
}
