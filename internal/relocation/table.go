// Package relocation tracks which bytes of a music image are halves of 16 bit
// addresses and derives new pointer pairs from already known ones.
package relocation

import (
	"fmt"
	"io"

	"github.com/retroenv/sidreloc/internal/symbols"
)

// Half defines which half of a 16 bit address a byte holds.
type Half uint8

// address halves.
const (
	Low Half = iota
	High
)

func (h Half) String() string {
	if h == High {
		return "HIGH"
	}
	return "LOW"
}

// Entry describes a byte that is one half of a pointer to EffectiveAddress.
type Entry struct {
	EffectiveAddress uint16
	Half             Half
}

// Table maps byte addresses to their pointer role. An address has at most one entry.
type Table struct {
	entries *symbols.Table[Entry]
}

// NewTable returns a new empty relocation table.
func NewTable() *Table {
	return &Table{
		entries: symbols.New[Entry](),
	}
}

// Set inserts or replaces the entry for the address.
func (t *Table) Set(address uint16, entry Entry) {
	t.entries.Set(address, entry)
}

// SetIfAbsent inserts the entry only if the address has none yet and
// returns whether it was inserted.
func (t *Table) SetIfAbsent(address uint16, entry Entry) bool {
	return t.entries.SetIfAbsent(address, entry)
}

// Get returns the entry for the address.
func (t *Table) Get(address uint16) (Entry, bool) {
	return t.entries.Get(address)
}

// Has returns whether an entry exists for the address.
func (t *Table) Has(address uint16) bool {
	return t.entries.Has(address)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.entries.Len()
}

// Addresses returns all addresses with an entry in ascending order.
func (t *Table) Addresses() []uint16 {
	return t.entries.Addresses()
}

// Snapshot returns a copy of the table that does not see later changes.
func (t *Table) Snapshot() *Table {
	return &Table{
		entries: t.entries.Clone(),
	}
}

// Dump writes all entries in address order.
func (t *Table) Dump(w io.Writer) error {
	for _, addr := range t.Addresses() {
		entry, _ := t.Get(addr)
		if _, err := fmt.Fprintf(w, "$%04X -> $%04X (%s)\n", addr, entry.EffectiveAddress, entry.Half); err != nil {
			return fmt.Errorf("writing relocation entry: %w", err)
		}
	}
	return nil
}
