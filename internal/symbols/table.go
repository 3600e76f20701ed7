// Package symbols provides generic address keyed symbol storage.
package symbols

import (
	"maps"
	"slices"
)

// Table maps 16 bit addresses to items of type T.
// Iteration helpers always return addresses in ascending order to keep generated output stable.
type Table[T any] struct {
	items map[uint16]T
}

// New creates a new empty symbol table.
func New[T any]() *Table[T] {
	return &Table[T]{
		items: make(map[uint16]T),
	}
}

// Get returns the item at the given address.
func (t *Table[T]) Get(address uint16) (T, bool) {
	item, ok := t.items[address]
	return item, ok
}

// Set sets the item at the given address, replacing any previous item.
func (t *Table[T]) Set(address uint16, item T) {
	t.items[address] = item
}

// SetIfAbsent sets the item only if no item exists for the address yet.
// It returns whether the item was stored.
func (t *Table[T]) SetIfAbsent(address uint16, item T) bool {
	if _, ok := t.items[address]; ok {
		return false
	}
	t.items[address] = item
	return true
}

// Has returns whether an item exists at the given address.
func (t *Table[T]) Has(address uint16) bool {
	_, ok := t.items[address]
	return ok
}

// Len returns the number of items in the table.
func (t *Table[T]) Len() int {
	return len(t.items)
}

// Addresses returns all addresses of the table in ascending order.
func (t *Table[T]) Addresses() []uint16 {
	return slices.Sorted(maps.Keys(t.items))
}

// Clone returns a shallow copy of the table that is not affected by
// later changes to the original.
func (t *Table[T]) Clone() *Table[T] {
	return &Table[T]{
		items: maps.Clone(t.items),
	}
}

// Floor returns the highest address that is lower or equal to the given address
// and has an item assigned.
func (t *Table[T]) Floor(address uint16) (uint16, T, bool) {
	var (
		best  uint16
		item  T
		found bool
	)
	for addr, it := range t.items {
		if addr > address {
			continue
		}
		if !found || addr > best {
			best = addr
			item = it
			found = true
		}
	}
	return best, item, found
}
