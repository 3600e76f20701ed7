package relocation

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/cpu"
)

const (
	// maxPropagationPasses bounds the fixed point iteration, pointer cycles
	// would otherwise never terminate.
	maxPropagationPasses = 10
	// maxHighByteDistance is the largest distance searched from a low byte
	// to its matching high byte, covering common pointer table strides.
	maxHighByteDistance = 8
)

// Provenance returns the origin of the values last written to memory.
type Provenance interface {
	WriteSource(address uint16) cpu.Source
	LastWriteTo(address uint16) uint16
}

// Image is the original unmodified binary.
type Image interface {
	Base() uint16
	End() int
	ByteAt(address uint16) (byte, bool)
}

// SubdivisionMarker receives addresses of data bytes that should start a new
// labeled data unit.
type SubdivisionMarker interface {
	MarkPendingSubdivision(address uint16)
}

// IndirectAccess records a dereference of a zero page pointer whose both
// bytes were copied from memory.
type IndirectAccess struct {
	InstructionAddress uint16
	PointerLow         uint16
	PointerHigh        uint16
	LastWriteLow       uint16
	LastWriteHigh      uint16
	SourceLow          uint16
	SourceHigh         uint16
	EffectiveAddress   uint16 // runtime value, can differ from the image
}

// Tracker collects relocation bytes and indirect accesses of one analysis run.
type Tracker struct {
	logger     *log.Logger
	provenance Provenance
	image      Image
	marker     SubdivisionMarker

	table    *Table
	accesses []IndirectAccess
}

// NewTracker returns a new tracker for a single analysis run.
func NewTracker(logger *log.Logger, provenance Provenance, image Image, marker SubdivisionMarker) *Tracker {
	return &Tracker{
		logger:     logger,
		provenance: provenance,
		image:      image,
		marker:     marker,
		table:      NewTable(),
	}
}

// Table returns the relocation table.
func (t *Tracker) Table() *Table {
	return t.table
}

// IndirectAccesses returns the recorded indirect accesses.
func (t *Tracker) IndirectAccesses() []IndirectAccess {
	return t.accesses
}

// AddRelocationByte sets the pointer role of a byte, replacing any previous role.
func (t *Tracker) AddRelocationByte(address uint16, entry Entry) {
	t.table.Set(address, entry)
}

// AddOperandRelocation records both bytes of an absolute instruction operand.
func (t *Tracker) AddOperandRelocation(operand, value uint16) {
	t.AddRelocationByte(operand, Entry{EffectiveAddress: value, Half: Low})
	t.AddRelocationByte(operand+1, Entry{EffectiveAddress: value, Half: High})
}

// AddIndirectAccess records an access through the zero page pointer at zeroPage.
// Accesses are only recorded if both pointer bytes were copied from memory.
func (t *Tracker) AddIndirectAccess(pc uint16, zeroPage uint8, effective uint16) {
	lowAddr := uint16(zeroPage)
	highAddr := lowAddr + 1

	low := t.provenance.WriteSource(lowAddr)
	high := t.provenance.WriteSource(highAddr)
	if low.Kind != cpu.Memory || high.Kind != cpu.Memory {
		return
	}

	t.accesses = append(t.accesses, IndirectAccess{
		InstructionAddress: pc,
		PointerLow:         lowAddr,
		PointerHigh:        highAddr,
		LastWriteLow:       t.provenance.LastWriteTo(lowAddr),
		LastWriteHigh:      t.provenance.LastWriteTo(highAddr),
		SourceLow:          low.Address,
		SourceHigh:         high.Address,
		EffectiveAddress:   effective,
	})

	t.logger.Debug("Recorded indirect access",
		log.Hex("pc", pc),
		log.Hex("zero_page", zeroPage),
		log.Hex("effective", effective))
}

// ProcessIndirectAccesses converts the recorded indirect accesses into relocation
// entries of the bytes that the pointers were copied from and propagates them.
func (t *Tracker) ProcessIndirectAccesses() {
	if len(t.accesses) == 0 {
		t.logger.Debug("No indirect accesses to process")
		return
	}

	for _, access := range t.accesses {
		lo, okLow := t.image.ByteAt(access.SourceLow)
		hi, okHigh := t.image.ByteAt(access.SourceHigh)
		if !okLow || !okHigh {
			continue
		}
		effective := uint16(lo) | uint16(hi)<<8

		t.table.Set(access.SourceLow, Entry{EffectiveAddress: effective, Half: Low})
		t.table.Set(access.SourceHigh, Entry{EffectiveAddress: effective, Half: High})

		t.logger.Debug("Added relocation",
			log.Hex("low", access.SourceLow),
			log.Hex("high", access.SourceHigh),
			log.Hex("effective", effective))

		load := t.image.Base()
		if access.SourceLow >= load && access.SourceHigh >= load {
			t.marker.MarkPendingSubdivision(access.SourceLow)
			t.marker.MarkPendingSubdivision(access.SourceHigh)
		}
	}

	t.Propagate()
}

// Propagate derives relocation entries for the bytes that known pointer pairs
// were copied from, until no new entries are found or the pass limit is reached.
// It returns the number of executed passes.
func (t *Tracker) Propagate() int {
	passes := 0
	for changed := true; changed && passes < maxPropagationPasses; {
		passes++
		changed = t.propagatePass()
	}

	t.logger.Debug("Propagation complete",
		log.Int("passes", passes),
		log.Int("relocation_bytes", t.table.Len()))
	return passes
}

func (t *Tracker) propagatePass() bool {
	changed := false
	snapshot := t.table.Snapshot()

	for _, addr := range snapshot.Addresses() {
		entry, _ := snapshot.Get(addr)
		if entry.Half != Low {
			continue
		}
		source := t.provenance.WriteSource(addr)
		if source.Kind != cpu.Memory {
			continue
		}

		if t.propagatePair(addr, source.Address) {
			changed = true
		}
	}
	return changed
}

// propagatePair searches the high byte entry that belongs to the low byte entry
// at address and adds entries for the bytes both were copied from. Only the
// first matching distance is used.
func (t *Tracker) propagatePair(address, lowSource uint16) bool {
	for distance := uint16(1); distance <= maxHighByteDistance; distance++ {
		entry, ok := t.table.Get(address + distance)
		if !ok || entry.Half != High {
			continue
		}

		highSource := t.provenance.WriteSource(address + distance).Address
		lo, okLow := t.image.ByteAt(lowSource)
		hi, okHigh := t.image.ByteAt(highSource)
		if !okLow || !okHigh {
			continue
		}
		effective := uint16(lo) | uint16(hi)<<8

		changed := false
		if t.table.SetIfAbsent(lowSource, Entry{EffectiveAddress: effective, Half: Low}) {
			changed = true
			t.marker.MarkPendingSubdivision(lowSource)
			t.logger.Debug("Propagated relocation",
				log.Hex("address", lowSource),
				log.String("half", Low.String()),
				log.Hex("effective", effective))
		}
		if t.table.SetIfAbsent(highSource, Entry{EffectiveAddress: effective, Half: High}) {
			changed = true
			t.marker.MarkPendingSubdivision(highSource)
			t.logger.Debug("Propagated relocation",
				log.Hex("address", highSource),
				log.String("half", High.String()),
				log.Hex("effective", effective))
		}
		return changed
	}
	return false
}
