// Package reactive provides Cell, a value container that notifies observers
// when its value changes.
package reactive

import "sync"

// Change is delivered to OnChanged listeners after every effective Set
type Change[T comparable] struct {
	Value T
	Cell  *Cell[T]
}

type entry[F any] struct {
	id uint64
	fn F
}

// Cell holds a single value. Subscribers run synchronously, in registration
// order, on the goroutine that calls Set. No lock is held while they run, so
// they may read the cell, set it, subscribe or unsubscribe.
type Cell[T comparable] struct {
	mu        sync.Mutex
	value     T
	nextID    uint64
	subs      []entry[func(T)]
	listeners []entry[func(Change[T])]
	onChange  func(T)
}

// Option configures a Cell
type Option[T comparable] func(*Cell[T])

// WithChangeCallback runs fn after the subscribers of every effective Set
func WithChangeCallback[T comparable](fn func(T)) Option[T] {
	return func(c *Cell[T]) {
		c.onChange = fn
	}
}

// New creates a cell holding initial
func New[T comparable](initial T, opts ...Option[T]) *Cell[T] {
	c := &Cell[T]{value: initial}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type setOptions struct {
	force bool
}

// SetOption modifies a single Set call
type SetOption func(*setOptions)

// Force makes Set notify even when the value is unchanged
func Force() SetOption {
	return func(o *setOptions) {
		o.force = true
	}
}

// Get returns the current value
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v. If v equals the current value and Force is not given, Set
// does nothing. Otherwise subscribers run, then the change callback, then
// OnChanged listeners.
func (c *Cell[T]) Set(v T, opts ...SetOption) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	if v == c.value && !o.force {
		c.mu.Unlock()
		return
	}
	c.value = v
	// Slices are replaced, never mutated in place, so the snapshots stay valid
	subs := c.subs
	listeners := c.listeners
	onChange := c.onChange
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
	if onChange != nil {
		onChange(v)
	}
	change := Change[T]{Value: v, Cell: c}
	for _, l := range listeners {
		l.fn(change)
	}
}

// Subscribe registers fn to receive every new value. The returned function
// unsubscribes and is safe to call more than once.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subs = appendEntry(c.subs, entry[func(T)]{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = removeEntry(c.subs, id)
	}
}

// OnChanged registers fn as an external change listener
func (c *Cell[T]) OnChanged(fn func(Change[T])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = appendEntry(c.listeners, entry[func(Change[T])]{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners = removeEntry(c.listeners, id)
	}
}

// Watch calls fn with the current value, then with every change until the
// returned function is called
func (c *Cell[T]) Watch(fn func(T)) func() {
	unsubscribe := c.OnChanged(func(ch Change[T]) { fn(ch.Value) })
	fn(c.Get())
	return unsubscribe
}

// Destroy drops all subscribers and listeners
func (c *Cell[T]) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = nil
	c.listeners = nil
}

func appendEntry[F any](list []entry[F], e entry[F]) []entry[F] {
	next := make([]entry[F], len(list), len(list)+1)
	copy(next, list)
	return append(next, e)
}

func removeEntry[F any](list []entry[F], id uint64) []entry[F] {
	for i, e := range list {
		if e.id == id {
			next := make([]entry[F], 0, len(list)-1)
			next = append(next, list[:i]...)
			return append(next, list[i+1:]...)
		}
	}
	return list
}
