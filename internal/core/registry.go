package core

import "sort"

// ReferenceRegistry indexes resolved values by path and holds callbacks
// waiting for paths that are not resolved yet. One registry serves a
// single Parse call.
type ReferenceRegistry struct {
	values  map[string]any
	pending map[string][]func(any)
}

func NewReferenceRegistry() *ReferenceRegistry {
	return &ReferenceRegistry{
		values:  map[string]any{},
		pending: map[string][]func(any){},
	}
}

// Register stores value under name and fires the callbacks queued for it,
// in the order they were queued. Callbacks fire at most once; registering
// the same name again only replaces the stored value.
func (r *ReferenceRegistry) Register(name string, value any) {
	r.values[name] = value
	callbacks, ok := r.pending[name]
	if !ok {
		return
	}
	delete(r.pending, name)
	for _, callback := range callbacks {
		callback(value)
	}
}

// ResolveOnceReady calls callback right away and returns true when name is
// registered, otherwise it queues the callback and returns false.
func (r *ReferenceRegistry) ResolveOnceReady(name string, callback func(any)) bool {
	if value, ok := r.values[name]; ok {
		callback(value)
		return true
	}
	r.pending[name] = append(r.pending[name], callback)
	return false
}

func (r *ReferenceRegistry) Lookup(name string) (any, bool) {
	value, ok := r.values[name]
	return value, ok
}

// UnresolvedNames returns the sorted names that still have callbacks
// waiting on them.
func (r *ReferenceRegistry) UnresolvedNames() []string {
	names := make([]string, 0, len(r.pending))
	for name := range r.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
