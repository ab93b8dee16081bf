// Package orderedmap provides a key-unique map whose values are kept in a
// caller-defined sort order.
//
// Lookups go through a hash map; the order is a slice of keys maintained on
// every mutation with a binary search for the insertion point, so Values
// never observes a stale position.
package orderedmap

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/starford/bloggen/internal/apperr"
)

// Direction selects ascending or descending order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// By returns a comparison over an ordered sort key extracted from each value.
func By[V any, S cmp.Ordered](key func(V) S) func(a, b V) int {
	return func(a, b V) int { return cmp.Compare(key(a), key(b)) }
}

// ByTime returns a comparison over a time sort key extracted from each value.
func ByTime[V any](key func(V) time.Time) func(a, b V) int {
	return func(a, b V) int { return key(a).Compare(key(b)) }
}

type entry[V any] struct {
	value V
	seq   uint64
}

// Map is not safe for concurrent mutation.
type Map[K comparable, V any] struct {
	entries map[K]*entry[V]
	order   []K
	compare func(a, b V) int
	dir     Direction
	nextSeq uint64
}

// New creates an empty map ordered by compare in the given direction.
// Values that compare equal keep insertion order (earliest first) in both
// directions.
func New[K comparable, V any](compare func(a, b V) int, dir Direction) *Map[K, V] {
	return &Map[K, V]{
		entries: make(map[K]*entry[V]),
		compare: compare,
		dir:     dir,
	}
}

// cmpEntries orders a before b: by sort key in the configured direction, then by
// insertion sequence.
func (m *Map[K, V]) cmpEntries(a, b *entry[V]) int {
	c := m.compare(a.value, b.value)
	if m.dir == Descending {
		c = -c
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// search returns the position of e in order, or where it would be inserted.
func (m *Map[K, V]) search(e *entry[V]) (int, bool) {
	return slices.BinarySearchFunc(m.order, e, func(k K, target *entry[V]) int {
		return m.cmpEntries(m.entries[k], target)
	})
}

// Set inserts or replaces the value stored under key. A replaced key keeps
// its original insertion rank for tie-breaking and is repositioned under
// its new sort key.
func (m *Map[K, V]) Set(key K, value V) {
	if e, ok := m.entries[key]; ok {
		if i, found := m.search(e); found {
			m.order = slices.Delete(m.order, i, i+1)
		}
		e.value = value
		i, _ := m.search(e)
		m.order = slices.Insert(m.order, i, key)
		return
	}

	e := &entry[V]{value: value, seq: m.nextSeq}
	m.nextSeq++
	i, _ := m.search(e)
	m.entries[key] = e
	m.order = slices.Insert(m.order, i, key)
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, error) {
	e, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("orderedmap: key %v: %w", key, apperr.ErrNotFound)
	}
	return e.value, nil
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.entries[key]
	return ok
}

// Delete removes key. A missing key is an error.
func (m *Map[K, V]) Delete(key K) error {
	e, ok := m.entries[key]
	if !ok {
		return fmt.Errorf("orderedmap: delete %v: %w", key, apperr.ErrNotFound)
	}
	if i, found := m.search(e); found {
		m.order = slices.Delete(m.order, i, i+1)
	}
	delete(m.entries, key)
	return nil
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.order) }

// Keys returns the keys in order.
func (m *Map[K, V]) Keys() []K {
	return slices.Clone(m.order)
}

// Values returns the values in order.
func (m *Map[K, V]) Values() []V {
	out := make([]V, len(m.order))
	for i, k := range m.order {
		out[i] = m.entries[k].value
	}
	return out
}
