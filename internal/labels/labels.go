// Package labels assigns symbolic names to addresses of the disassembled image
// and resolves addresses to expressions using these names.
package labels

import (
	"fmt"
	"slices"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/sidreloc/internal/memory"
	"github.com/retroenv/sidreloc/internal/symbols"
)

// SID register window.
const (
	SIDWindowStart = 0xD400
	SIDWindowEnd   = 0xD7FF
	SIDBlockMask   = 0xFFE0
)

const (
	codeLabelPrefix = "Label_"
	dataLabelPrefix = "DataBlock_"
)

// HardwareKind defines the type of a hardware chip.
type HardwareKind uint8

// hardware kinds.
const (
	SID HardwareKind = iota
)

func (k HardwareKind) String() string {
	switch k {
	case SID:
		return "SID"
	default:
		return fmt.Sprintf("Hardware%d", k)
	}
}

// HardwareBase is a detected hardware register block.
type HardwareBase struct {
	Kind    HardwareKind
	Address uint16
	Index   int
	Name    string
}

// Lookup resolves addresses to labels and expressions.
type Lookup interface {
	LabelAt(address uint16) (string, bool)
	FormatAddress(address uint16) string
	FormatZeroPage(address uint8) string
}

// Registrar receives symbols that are detected while generating the output.
type Registrar interface {
	RegisterHardwareBase(base HardwareBase)
	RegisterZeroPageVariable(address uint8, name string)
	MarkPendingSubdivision(address uint16)
}

// RangeSource provides the code layout of the image.
type RangeSource interface {
	LabelTargets() []uint16
	CodeRanges() []memory.Range
}

// DataBlock is a labeled range of data, End is inclusive.
type DataBlock struct {
	Label string
	Start uint16
	End   uint16
}

// span is a half open range of offsets into a data block.
type span struct {
	start uint16
	end   uint16
}

var _ Lookup = (*Generator)(nil)
var _ Registrar = (*Generator)(nil)

// Generator creates labels for code and data of the image range [load, end).
type Generator struct {
	logger *log.Logger
	ranges RangeSource
	load   uint16
	end    int

	labels   *symbols.Table[string]
	zeroPage map[uint8]string
	hardware []HardwareBase
	blocks   []DataBlock

	subdivisions   map[string][]span
	pending        set.Set[uint16]
	pendingInOrder []uint16

	codeLabels int
	dataLabels int
}

// New returns a new label generator.
func New(logger *log.Logger, ranges RangeSource, load uint16, end int) *Generator {
	return &Generator{
		logger:       logger,
		ranges:       ranges,
		load:         load,
		end:          end,
		labels:       symbols.New[string](),
		zeroPage:     make(map[uint8]string),
		subdivisions: make(map[string][]span),
		pending:      set.New[uint16](),
	}
}

func (g *Generator) inImage(address uint16) bool {
	return address >= g.load && int(address) < g.end
}

// Generate creates labels for all label targets and for the data blocks
// between code ranges.
func (g *Generator) Generate() {
	for _, addr := range g.ranges.LabelTargets() {
		if !g.inImage(addr) {
			continue
		}
		g.labels.Set(addr, fmt.Sprintf("%s%d", codeLabelPrefix, g.codeLabels))
		g.codeLabels++
	}

	codeRanges := slices.Clone(g.ranges.CodeRanges())
	slices.SortFunc(codeRanges, func(a, b memory.Range) int {
		return int(a.Start) - int(b.Start)
	})

	previousEnd := int(g.load)
	for _, r := range codeRanges {
		if int(r.Start) > previousEnd {
			g.addDataBlock(uint16(previousEnd), r.Start-1)
		}
		previousEnd = int(r.End) + 1
	}
	if previousEnd < g.end {
		g.addDataBlock(uint16(previousEnd), uint16(g.end-1))
	}

	g.logger.Debug("Generated labels",
		log.Int("code_labels", g.codeLabels),
		log.Int("data_labels", g.dataLabels))
}

func (g *Generator) addDataBlock(start, end uint16) {
	label := fmt.Sprintf("%s%d", dataLabelPrefix, g.dataLabels)
	g.dataLabels++
	g.labels.Set(start, label)
	g.blocks = append(g.blocks, DataBlock{Label: label, Start: start, End: end})
}

// DataBlocks returns all data blocks.
func (g *Generator) DataBlocks() []DataBlock {
	return g.blocks
}

// LabelAt returns the label of the address.
func (g *Generator) LabelAt(address uint16) (string, bool) {
	return g.labels.Get(address)
}

// RegisterHardwareBase registers a hardware register block. A block of the
// same kind and index replaces the previous registration.
func (g *Generator) RegisterHardwareBase(base HardwareBase) {
	i := slices.IndexFunc(g.hardware, func(h HardwareBase) bool {
		return h.Kind == base.Kind && h.Index == base.Index
	})
	if i >= 0 {
		g.hardware[i] = base
	} else {
		g.hardware = append(g.hardware, base)
	}
	g.logger.Debug("Added hardware base",
		log.String("name", base.Name),
		log.Hex("address", base.Address),
		log.Int("index", base.Index))
}

// HardwareBases returns all registered hardware register blocks.
func (g *Generator) HardwareBases() []HardwareBase {
	return g.hardware
}

// RegisterZeroPageVariable assigns a name to a zero page address.
func (g *Generator) RegisterZeroPageVariable(address uint8, name string) {
	g.zeroPage[address] = name
}

// MarkPendingSubdivision marks a data byte as the start of a pointer sized
// unit. Addresses outside of the image are ignored.
func (g *Generator) MarkPendingSubdivision(address uint16) {
	if !g.inImage(address) || g.pending.Contains(address) {
		return
	}
	g.pending.Add(address)
	g.pendingInOrder = append(g.pendingInOrder, address)
}

// ApplySubdivisions splits data blocks at the pending subdivision addresses.
// Contiguous addresses form one sub block labeled <block>_<n>, the original
// block gets renamed to <block>_0.
func (g *Generator) ApplySubdivisions() {
	sorted := slices.Clone(g.pendingInOrder)
	slices.Sort(sorted)

	for i := 0; i < len(sorted); i++ {
		start := sorted[i]
		end := int(start) + 1
		for i+1 < len(sorted) && int(sorted[i+1]) == end {
			end++
			i++
		}
		g.addSubdivision(start, end)
	}

	var created []DataBlock
	for i := range g.blocks {
		block := &g.blocks[i]
		spans, ok := g.subdivisions[block.Label]
		if !ok {
			continue
		}
		slices.SortFunc(spans, func(a, b span) int {
			return int(a.start) - int(b.start)
		})

		for j, sp := range spans {
			label := fmt.Sprintf("%s_%d", block.Label, j+1)
			start := block.Start + sp.start
			g.labels.Set(start, label)
			created = append(created, DataBlock{Label: label, Start: start, End: block.Start + sp.end - 1})
		}

		delete(g.subdivisions, block.Label)
		block.Label += "_0"
		g.labels.Set(block.Start, block.Label)
	}
	g.blocks = append(g.blocks, created...)

	g.logger.Debug("Applied subdivisions", log.Int("count", len(created)))
	g.pending = set.New[uint16]()
	g.pendingInOrder = nil
}

// addSubdivision adds the address range [start, end) to the data block that it overlaps.
func (g *Generator) addSubdivision(start uint16, end int) {
	for _, block := range g.blocks {
		if int(start) > int(block.End) || end <= int(block.Start) {
			continue
		}

		sp := span{
			start: max(start, block.Start) - block.Start,
			end:   uint16(min(end, int(block.End)+1) - int(block.Start)),
		}
		existing := g.subdivisions[block.Label]
		for _, e := range existing {
			if sp.start < e.end && sp.end > e.start {
				return
			}
		}
		g.subdivisions[block.Label] = append(existing, sp)
		return
	}
}

// FormatAddress returns the expression for an address. SID registers are
// expressed relative to their block, addresses inside the image relative to
// the nearest preceding label. All other addresses are not relocatable.
func (g *Generator) FormatAddress(address uint16) string {
	if address >= SIDWindowStart && address <= SIDWindowEnd {
		return g.formatSIDAddress(address)
	}

	if label, ok := g.labels.Get(address); ok {
		return label
	}

	if g.inImage(address) {
		if base, label, ok := g.labels.Floor(address); ok {
			return fmt.Sprintf("%s+%d", label, address-base)
		}
	}

	return fmt.Sprintf("$%04X", address)
}

func (g *Generator) formatSIDAddress(address uint16) string {
	base := address & SIDBlockMask
	offset := address &^ SIDBlockMask

	for _, hw := range g.hardware {
		if hw.Kind != SID || hw.Address != base {
			continue
		}
		if offset == 0 {
			return hw.Name
		}
		return fmt.Sprintf("%s+%d", hw.Name, offset)
	}
	return fmt.Sprintf("SID0+%d", address-SIDWindowStart)
}

// FormatZeroPage returns the variable name of a zero page address.
func (g *Generator) FormatZeroPage(address uint8) string {
	if name, ok := g.zeroPage[address]; ok {
		return name
	}
	return fmt.Sprintf("$%02X", address)
}
