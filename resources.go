package ecs

import "reflect"

// resourceMap is the world's process-scoped-per-world singleton map keyed
// by type (§3 "World": "a resources map keyed by resource type"). NewWorld
// stores the GUID allocator (guid.go) here; the world's own component
// added/removed event channels are World fields, not resources.
type resourceMap struct {
	values map[reflect.Type]any
}

func newResourceMap() *resourceMap {
	return &resourceMap{values: make(map[reflect.Type]any)}
}

// SetResource installs value as the world's singleton instance of T.
func SetResource[T any](w *World, value T) {
	w.resources.values[reflect.TypeOf((*T)(nil)).Elem()] = value
}

// Resource retrieves the world's singleton instance of T.
func Resource[T any](w *World) (T, bool) {
	var zero T
	v, ok := w.resources.values[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// MustResource retrieves T, panicking if it has not been installed. It
// suits call sites where absence means a required SetResource call was
// missed during world setup.
func MustResource[T any](w *World) T {
	v, ok := Resource[T](w)
	if !ok {
		var zero T
		panic("ecs: missing required resource " + reflect.TypeOf(zero).String())
	}
	return v
}
