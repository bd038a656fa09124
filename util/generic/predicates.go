// Package generic holds type parameterized helpers around controller-runtime
package generic

import (
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

// NewPredicateFuncs filters events by a function of the concrete object type.
// Objects of other types never pass.
func NewPredicateFuncs[T client.Object](f func(T) bool) predicate.Funcs {
	return predicate.NewPredicateFuncs(func(obj client.Object) bool {
		t, ok := obj.(T)
		return ok && f(t)
	})
}

// IgnoreDeletes drops delete events
func IgnoreDeletes() predicate.Funcs {
	return predicate.Funcs{
		DeleteFunc: func(event.DeleteEvent) bool { return false },
	}
}
