// Package reactive provides an observable value holder. Every Set replaces the held value
// wholesale and notifies subscribers, so consumers can detect change by the notification
// alone instead of diffing.
package reactive

import "sync"

// Handler receives the newly stored value.
type Handler[T any] func(T)

// Value holds a single value of type T.
type Value[T any] struct {
	mu       sync.RWMutex
	value    T
	version  uint64
	nextID   int
	handlers map[int]Handler[T]
}

// NewValue returns a holder initialised with v.
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{value: v, handlers: make(map[int]Handler[T])}
}

// Get returns the current value. Callers must treat it as read-only.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Version increments on every Set.
func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Set replaces the value and synchronously notifies subscribers.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.value = next
	v.version++
	handlers := make([]Handler[T], 0, len(v.handlers))
	for _, h := range v.handlers {
		handlers = append(handlers, h)
	}
	v.mu.Unlock()

	for _, h := range handlers {
		h(next)
	}
}

// Subscribe registers h and returns a function that removes it.
func (v *Value[T]) Subscribe(h Handler[T]) (unsubscribe func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.handlers == nil {
		v.handlers = make(map[int]Handler[T])
	}
	id := v.nextID
	v.nextID++
	v.handlers[id] = h
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.handlers, id)
	}
}

// ReadOnly is the consumer side of a Value.
type ReadOnly[T any] interface {
	Get() T
	Version() uint64
	Subscribe(h Handler[T]) (unsubscribe func())
}

var _ ReadOnly[int] = (*Value[int])(nil)
