// Package collections provides the reusable stacks and queues behind the
// graph walks.
package collections

// FreeList is a free-list of reusable objects.
//
// It has no internal synchronization: one FreeList must only be used by one
// goroutine at a time. Give every concurrently running owner its own list.
type FreeList[T any] struct {
	items []T
	newFn func() T
	reset func(T)

	allocated int
}

// NewFreeList creates a free-list. newFn builds a fresh object when the list
// is empty; reset, if non-nil, is applied to an object when it is returned.
func NewFreeList[T any](newFn func() T, reset func(T)) *FreeList[T] {
	return &FreeList[T]{
		items: make([]T, 0, 8),
		newFn: newFn,
		reset: reset,
	}
}

// Get takes an object from the list, creating one if the list is empty.
func (f *FreeList[T]) Get() T {
	if n := len(f.items); n > 0 {
		v := f.items[n-1]
		var zero T
		f.items[n-1] = zero
		f.items = f.items[:n-1]
		return v
	}
	f.allocated++
	return f.newFn()
}

// Put returns an object to the list.
func (f *FreeList[T]) Put(v T) {
	if f.reset != nil {
		f.reset(v)
	}
	f.items = append(f.items, v)
}

// Len returns the number of idle objects held by the list.
func (f *FreeList[T]) Len() int {
	return len(f.items)
}

// Allocated returns how many objects the list has created so far.
func (f *FreeList[T]) Allocated() int {
	return f.allocated
}

// NewStackList returns a free-list of stacks that are cleared on return.
func NewStackList[T any](capacity int) *FreeList[*Stack[T]] {
	return NewFreeList(
		func() *Stack[T] { return NewStack[T](capacity) },
		func(s *Stack[T]) { s.Clear() },
	)
}

// NewQueueList returns a free-list of queues that are cleared on return.
func NewQueueList[T any](capacity int) *FreeList[*Queue[T]] {
	return NewFreeList(
		func() *Queue[T] { return NewQueue[T](capacity) },
		func(q *Queue[T]) { q.Clear() },
	)
}
