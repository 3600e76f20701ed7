package symbols

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

type testItem struct {
	name  string
	value uint16
}

//nolint:funlen // test functions can be long
func TestTable(t *testing.T) {
	t.Run("new table is empty", func(t *testing.T) {
		tbl := New[testItem]()

		assert.NotNil(t, tbl)
		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, 0, len(tbl.Addresses()))
	})

	t.Run("set and get item", func(t *testing.T) {
		tbl := New[testItem]()
		tbl.Set(0x1000, testItem{name: "TEST", value: 0x1234})

		got, ok := tbl.Get(0x1000)
		assert.True(t, ok)
		assert.Equal(t, "TEST", got.name)
		assert.Equal(t, uint16(0x1234), got.value)
	})

	t.Run("get non-existent returns false", func(t *testing.T) {
		tbl := New[testItem]()

		_, ok := tbl.Get(0x1000)
		assert.False(t, ok)
		assert.False(t, tbl.Has(0x1000))
	})

	t.Run("set overwrites existing item", func(t *testing.T) {
		tbl := New[testItem]()
		tbl.Set(0x1000, testItem{name: "A"})
		tbl.Set(0x1000, testItem{name: "B"})

		got, _ := tbl.Get(0x1000)
		assert.Equal(t, "B", got.name)
		assert.Equal(t, 1, tbl.Len())
	})

	t.Run("set if absent keeps existing item", func(t *testing.T) {
		tbl := New[testItem]()
		assert.True(t, tbl.SetIfAbsent(0x1000, testItem{name: "A"}))
		assert.False(t, tbl.SetIfAbsent(0x1000, testItem{name: "B"}))

		got, _ := tbl.Get(0x1000)
		assert.Equal(t, "A", got.name)
	})

	t.Run("addresses are sorted", func(t *testing.T) {
		tbl := New[testItem]()
		tbl.Set(0x3000, testItem{})
		tbl.Set(0x1000, testItem{})
		tbl.Set(0x2000, testItem{})

		assert.Equal(t, []uint16{0x1000, 0x2000, 0x3000}, tbl.Addresses())
	})

	t.Run("clone is independent", func(t *testing.T) {
		tbl := New[testItem]()
		tbl.Set(0x1000, testItem{name: "A"})

		snapshot := tbl.Clone()
		tbl.Set(0x1001, testItem{name: "B"})

		assert.Equal(t, 1, snapshot.Len())
		assert.Equal(t, 2, tbl.Len())
	})

	t.Run("floor finds nearest lower address", func(t *testing.T) {
		tbl := New[testItem]()
		tbl.Set(0x1000, testItem{name: "A"})
		tbl.Set(0x1010, testItem{name: "B"})

		addr, item, ok := tbl.Floor(0x100F)
		assert.True(t, ok)
		assert.Equal(t, uint16(0x1000), addr)
		assert.Equal(t, "A", item.name)

		addr, item, ok = tbl.Floor(0x1010)
		assert.True(t, ok)
		assert.Equal(t, uint16(0x1010), addr)
		assert.Equal(t, "B", item.name)

		_, _, ok = tbl.Floor(0x0FFF)
		assert.False(t, ok)
	})
}
