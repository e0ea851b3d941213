// Package observable provides a published value that one owner writes and
// any number of observers read or subscribe to.
package observable

import "sync"

// Value holds the latest published T. Subscribers are called synchronously
// on the publishing goroutine, one publication at a time, so the last value
// delivered is always the current one. A subscriber must not publish to the
// Value it is subscribed to.
type Value[T any] struct {
	publish sync.Mutex
	mu      sync.RWMutex
	cur     T
	subs    map[uint64]func(T)
	nextID  uint64
}

// New returns a Value initialised to initial
func New[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[uint64]func(T))}
}

// Get returns the current value
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set publishes next to all subscribers
func (v *Value[T]) Set(next T) {
	v.publish.Lock()
	defer v.publish.Unlock()

	v.mu.Lock()
	v.cur = next
	subs := v.snapshot()
	v.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Update applies fn to the current value and publishes the result
func (v *Value[T]) Update(fn func(T) T) T {
	v.publish.Lock()
	defer v.publish.Unlock()

	v.mu.Lock()
	next := fn(v.cur)
	v.cur = next
	subs := v.snapshot()
	v.mu.Unlock()

	for _, s := range subs {
		s(next)
	}
	return next
}

// Subscribe registers fn for future publications and returns a function
// that removes the subscription. fn is not called with the current value.
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions
func (v *Value[T]) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}

func (v *Value[T]) snapshot() []func(T) {
	out := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		out = append(out, fn)
	}
	return out
}
