// Package sets provides a generic set type.
package sets

// Set is an unordered set of comparable items.
type Set[T comparable] map[T]struct{}

// New returns a Set containing items.
func New[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	s.Insert(items...)
	return s
}

// Insert adds items and returns the number of items that were new.
func (s Set[T]) Insert(items ...T) (added int) {
	for _, item := range items {
		if _, ok := s[item]; !ok {
			s[item] = struct{}{}
			added++
		}
	}
	return added
}

// Delete removes items.
func (s Set[T]) Delete(items ...T) {
	for _, item := range items {
		delete(s, item)
	}
}

// Has reports whether item is in the set.
func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

func (s Set[T]) Len() int { return len(s) }

// UnsortedList returns the items in random order.
func (s Set[T]) UnsortedList() []T {
	list := make([]T, 0, len(s))
	for item := range s {
		list = append(list, item)
	}
	return list
}
