package collections

// Stack is a LIFO stack used by the iterative graph walks.
type Stack[T any] struct {
	data []T
}

// NewStack creates a new stack with the given capacity.
func NewStack[T any](capacity int) *Stack[T] {
	return &Stack[T]{
		data: make([]T, 0, capacity),
	}
}

// Push pushes a value onto the stack.
func (s *Stack[T]) Push(v T) {
	s.data = append(s.data, v)
}

// Pop pops a value from the stack.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.data) == 0 {
		return zero, false
	}
	v := s.data[len(s.data)-1]
	s.data[len(s.data)-1] = zero
	s.data = s.data[:len(s.data)-1]
	return v, true
}

// IsEmpty returns true if the stack is empty.
func (s *Stack[T]) IsEmpty() bool {
	return len(s.data) == 0
}

// Len returns the number of items in the stack.
func (s *Stack[T]) Len() int {
	return len(s.data)
}

// Clear clears the stack, dropping references to its items.
func (s *Stack[T]) Clear() {
	clear(s.data)
	s.data = s.data[:0]
}

// Queue is a FIFO queue. Dequeued slots are reclaimed once more than half
// of a large backing array has been consumed.
type Queue[T any] struct {
	data []T
	head int
}

// NewQueue creates a new queue with the given capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		data: make([]T, 0, capacity),
	}
}

// Enqueue adds a value to the queue.
func (q *Queue[T]) Enqueue(v T) {
	q.data = append(q.data, v)
}

// Dequeue removes and returns the first value from the queue.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.head >= len(q.data) {
		return zero, false
	}
	v := q.data[q.head]
	q.data[q.head] = zero
	q.head++
	if q.head > len(q.data)/2 && q.head > 1024 {
		q.compact()
	}
	return v, true
}

// IsEmpty returns true if the queue is empty.
func (q *Queue[T]) IsEmpty() bool {
	return q.head >= len(q.data)
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	return len(q.data) - q.head
}

// Clear clears the queue.
func (q *Queue[T]) Clear() {
	clear(q.data)
	q.data = q.data[:0]
	q.head = 0
}

func (q *Queue[T]) compact() {
	remaining := q.data[q.head:]
	n := copy(q.data, remaining)
	clear(q.data[n:])
	q.data = q.data[:n]
	q.head = 0
}
