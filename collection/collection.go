// Package collection holds ordered query results.
package collection

import (
	"iter"
	"slices"

	"github.com/poiesic/persimmon/core"
)

// Collection is an ordered, fixed result set. Items keep the order the store
// returned them in. Per-item metadata such as score and position is attached
// to the items themselves when they are hydrated.
type Collection struct {
	items []core.Storable
	total int64
}

// New returns a collection over items. total is the number of documents the
// query matched before windowing; pass a negative value to use len(items).
func New(items []core.Storable, total int64) *Collection {
	if total < 0 {
		total = int64(len(items))
	}
	return &Collection{items: slices.Clone(items), total: total}
}

// Empty returns a collection with no items.
func Empty() *Collection {
	return &Collection{}
}

// First returns the first item, or false if the collection is empty.
func (c *Collection) First() (core.Storable, bool) {
	if len(c.items) == 0 {
		return nil, false
	}
	return c.items[0], true
}

// Count returns the number of items held.
func (c *Collection) Count() int { return len(c.items) }

// Total returns the number of documents the query matched, which exceeds
// Count when a limit or offset was applied.
func (c *Collection) Total() int64 { return c.total }

// IsEmpty reports whether the collection holds no items.
func (c *Collection) IsEmpty() bool { return len(c.items) == 0 }

// At returns the item at index i, or false if i is out of range.
func (c *Collection) At(i int) (core.Storable, bool) {
	if i < 0 || i >= len(c.items) {
		return nil, false
	}
	return c.items[i], true
}

// Items returns a copy of the item slice.
func (c *Collection) Items() []core.Storable {
	return slices.Clone(c.items)
}

// All iterates position and item. The sequence can be ranged over any number
// of times.
func (c *Collection) All() iter.Seq2[int, core.Storable] {
	return func(yield func(int, core.Storable) bool) {
		for i, s := range c.items {
			if !yield(i, s) {
				return
			}
		}
	}
}

// Each iterates the items of c that are of type T. Items of other types are
// skipped.
//
//	for i, p := range collection.Each[*Product](products) { ... }
func Each[T core.Storable](c *Collection) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, s := range c.items {
			t, ok := s.(T)
			if !ok {
				continue
			}
			if !yield(i, t) {
				return
			}
		}
	}
}

// Slice returns the items of c that are of type T.
func Slice[T core.Storable](c *Collection) []T {
	out := make([]T, 0, len(c.items))
	for _, t := range Each[T](c) {
		out = append(out, t)
	}
	return out
}
