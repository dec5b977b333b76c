package observable

import "sync"

// Field holds one mirrored device value. Device readings arrive through Update and only
// reach watchers; user changes arrive through Set and also reach subscribers, which is
// where writes back to the device hang.
type Field[T comparable] struct {
	mux         sync.Mutex
	value       T
	known       bool
	watchers    []func(T)
	subscribers []func(T)
}

func New[T comparable](initial T) *Field[T] {
	return &Field[T]{value: initial}
}

func (f *Field[T]) Get() T {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.value
}

// Known reports whether the field has been read from the device or set since creation.
func (f *Field[T]) Known() bool {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.known
}

// Update applies a device confirmed value. It returns true if the value changed.
func (f *Field[T]) Update(value T) bool {
	changed := f.store(value)
	if changed {
		notify(f.snapshot(false), value)
	}
	return changed
}

// Set applies a user change. Subscribers only run when the value actually changed.
func (f *Field[T]) Set(value T) bool {
	changed := f.store(value)
	if changed {
		notify(f.snapshot(true), value)
	}
	return changed
}

// Watch registers fn for every change, whatever its source.
func (f *Field[T]) Watch(fn func(T)) {
	f.mux.Lock()
	f.watchers = append(f.watchers, fn)
	f.mux.Unlock()
}

// Subscribe registers fn for user changes only.
func (f *Field[T]) Subscribe(fn func(T)) {
	f.mux.Lock()
	f.subscribers = append(f.subscribers, fn)
	f.mux.Unlock()
}

func (f *Field[T]) store(value T) bool {
	f.mux.Lock()
	defer f.mux.Unlock()
	changed := !f.known || f.value != value
	f.value = value
	f.known = true
	return changed
}

func (f *Field[T]) snapshot(withSubscribers bool) []func(T) {
	f.mux.Lock()
	defer f.mux.Unlock()
	fns := append([]func(T){}, f.watchers...)
	if withSubscribers {
		fns = append(fns, f.subscribers...)
	}
	return fns
}

func notify[T any](fns []func(T), value T) {
	for _, fn := range fns {
		fn(value)
	}
}
