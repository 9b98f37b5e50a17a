package buffer

import (
	"sync"

	"aisreporter/internal/constants"
)

// Ring is a bounded FIFO that evicts its oldest element when full.
// DrainAll hands the whole contents to the caller and leaves the ring empty
// in one step, so no element is lost or duplicated across a drain.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	size  int
	onLen func(int)
}

// New creates a ring holding at most capacity elements. A non-positive
// capacity uses the default buffer size.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = constants.DefaultBufferSize
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// OnLen registers fn to receive the length after every Enqueue and every
// non-empty DrainAll.
// fn runs while the ring is locked, so successive calls observe lengths in
// the order the ring went through them. It must not call back into the ring.
func (r *Ring[T]) OnLen(fn func(int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLen = fn
}

// Enqueue appends v and reports whether the oldest element was evicted to
// make room.
func (r *Ring[T]) Enqueue(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.items)
	tail := (r.head + r.size) % capacity
	r.items[tail] = v

	evicted := r.size == capacity
	if evicted {
		r.head = (r.head + 1) % capacity
	} else {
		r.size++
	}
	r.notify()
	return evicted
}

// DrainAll returns the buffered elements oldest first and resets the ring.
// It returns nil when the ring is empty.
func (r *Ring[T]) DrainAll() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil
	}

	out := make([]T, r.size)
	capacity := len(r.items)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%capacity]
	}

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.size = 0
	r.notify()

	return out
}

func (r *Ring[T]) notify() {
	if r.onLen != nil {
		r.onLen(r.size)
	}
}

func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *Ring[T]) Cap() int {
	return len(r.items)
}
