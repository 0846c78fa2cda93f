// Package params holds the externally owned, observable arpeggiator settings.
//
// Algorithms never read these values on the note path. They subscribe at
// construction, copy the value into a private cache on every change, and
// cancel their subscriptions when closed.
package params

import "sync"

// Value is an observable setting. Listeners run synchronously on the
// goroutine that calls Set, after the new value is stored.
type Value[T comparable] struct {
	mu        sync.RWMutex
	v         T
	nextID    int
	listeners map[int]func(T)
}

// NewValue creates a Value holding v
func NewValue[T comparable](v T) *Value[T] {
	return &Value[T]{v: v, listeners: make(map[int]func(T))}
}

// Get returns the current value
func (p *Value[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.v
}

// Set stores v and notifies listeners if it differs from the current value
func (p *Value[T]) Set(v T) {
	p.mu.Lock()
	if p.v == v {
		p.mu.Unlock()
		return
	}
	p.v = v
	fns := make([]func(T), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn for change notifications. The returned cancel func
// removes it and is safe to call more than once.
func (p *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Listeners returns the number of registered listeners
func (p *Value[T]) Listeners() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.listeners)
}
