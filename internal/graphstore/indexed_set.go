package graphstore

// IndexedSet assigns dense indices to values in first-seen order.
type IndexedSet[K comparable] struct {
	index map[K]uint64
	items []K
}

// NewIndexedSet creates an empty set.
func NewIndexedSet[K comparable]() *IndexedSet[K] {
	return &IndexedSet[K]{index: make(map[K]uint64)}
}

// Index returns the index of v, adding it when absent.
func (s *IndexedSet[K]) Index(v K) uint64 {
	if i, ok := s.index[v]; ok {
		return i
	}
	i := uint64(len(s.items))
	s.index[v] = i
	s.items = append(s.items, v)
	return i
}

// Items returns the values ordered by index.
func (s *IndexedSet[K]) Items() []K { return s.items }

// Len returns the number of distinct values.
func (s *IndexedSet[K]) Len() int { return len(s.items) }
