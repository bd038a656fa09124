package generic

import (
	"fmt"
	"reflect"

	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

// KindForType returns the Kind registered in the scheme for pointer type T.
// It panics if the type is not registered.
func KindForType[T client.Object](scheme *runtime.Scheme) string {
	obj := reflect.New(reflect.TypeFor[T]().Elem()).Interface().(T)
	gvk, err := apiutil.GVKForObject(obj, scheme)
	if err != nil {
		panic(fmt.Errorf("bug: %w", err))
	}
	return gvk.Kind
}
