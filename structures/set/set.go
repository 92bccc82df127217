package set

// Set formalizes set semantics for a map with empty values.
// A Set is not concurrency safe.
type Set[T comparable] map[T]struct{}

// New creates a new [Set] from the given values.
// The returned [Set] will have no values if none are given.
func New[T comparable](vals ...T) Set[T] {
	s := Set[T]{}
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Slice returns the values of the [Set] in no particular order.
func (s Set[T]) Slice() []T {
	if len(s) == 0 {
		return nil
	}
	vals := make([]T, 0, len(s))
	for val := range s {
		vals = append(vals, val)
	}
	return vals
}

// Add inserts values, allocating the [Set] if it's nil.
// The possibly new [Set] is returned, so the result should always be assigned.
func (s Set[T]) Add(val T, others ...T) Set[T] {
	if s == nil {
		s = Set[T]{}
	}
	s[val] = struct{}{}
	for _, v := range others {
		s[v] = struct{}{}
	}
	return s
}

// Remove deletes values, and is a no-op for a nil [Set].
func (s Set[T]) Remove(val T, others ...T) Set[T] {
	if s == nil {
		return s
	}
	delete(s, val)
	for _, v := range others {
		delete(s, v)
	}
	return s
}

func (s Set[T]) Has(val T) bool {
	_, ok := s[val]
	return ok
}

// Drain removes and returns every value in the [Set].
func (s Set[T]) Drain() []T {
	vals := s.Slice()
	clear(s)
	return vals
}
