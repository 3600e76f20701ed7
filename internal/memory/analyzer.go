package memory

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/cpu"
)

const addressSpace = 0x10000

// maxInstructionLookBehind is the number of bytes to look back from an operand
// byte to find the start of its instruction.
const maxInstructionLookBehind = 3

// AccessSource provides the access flags that were recorded during execution.
type AccessSource interface {
	Access(address uint16) cpu.AccessFlag
}

// Range is an inclusive address range.
type Range struct {
	Start uint16
	End   uint16
}

// Analyzer derives memory types from recorded access flags.
type Analyzer struct {
	logger *log.Logger
	access AccessSource

	start uint16
	end   int // exclusive, can be 0x10000
	types []Type
}

// NewAnalyzer returns a new analyzer for the image range [start, end).
func NewAnalyzer(logger *log.Logger, access AccessSource, start uint16, end int) *Analyzer {
	return &Analyzer{
		logger: logger,
		access: access,
		start:  start,
		end:    end,
		types:  make([]Type, addressSpace),
	}
}

// Analyze classifies the full address space. It has to be called after the
// execution of the player has finished.
func (a *Analyzer) Analyze() {
	a.analyzeExecution()
	a.analyzeAccesses()
	a.analyzeData()
}

// TypeAt returns the memory type of an address.
func (a *Analyzer) TypeAt(address uint16) Type {
	return a.types[address]
}

func (a *Analyzer) analyzeExecution() {
	var code, targets int
	for addr := range addressSpace {
		flags := a.access.Access(uint16(addr))
		if flags.Is(cpu.Execute) {
			a.types[addr].Set(Code)
			code++
		}
		if flags.Is(cpu.JumpTarget) {
			a.types[addr].Set(LabelTarget)
			targets++
		}
	}
	a.logger.Debug("Execution analysis complete",
		log.Int("code_bytes", code),
		log.Int("jump_targets", targets))
}

// analyzeAccesses marks read or written addresses as accessed. Accesses to bytes
// of executed instructions indicate self modifying code, the start of the
// modified instruction becomes a label target to be able to reference it.
func (a *Analyzer) analyzeAccesses() {
	for addr := range addressSpace {
		if !a.access.Access(uint16(addr)).Is(cpu.Read | cpu.Write) {
			continue
		}
		a.types[addr].Set(Accessed)

		if a.types[addr].HasCode() {
			start := a.instructionStartCovering(uint16(addr))
			a.types[start].Set(LabelTarget)
		}
	}
}

func (a *Analyzer) analyzeData() {
	for addr := range addressSpace {
		if !a.types[addr].HasCode() {
			a.types[addr].Set(Data)
		}
	}
}

func (a *Analyzer) instructionStartCovering(address uint16) uint16 {
	for i := range uint16(maxInstructionLookBehind) {
		if address < i {
			break
		}
		search := address - i
		if a.access.Access(search).Is(cpu.OpCode) {
			return search
		}
	}
	return address
}

// CodeRanges returns all ranges of code inside the image.
func (a *Analyzer) CodeRanges() []Range {
	return a.ranges(Code)
}

// DataRanges returns all ranges of data inside the image.
func (a *Analyzer) DataRanges() []Range {
	return a.ranges(Data)
}

// LabelTargets returns all label targets inside the image in ascending order.
func (a *Analyzer) LabelTargets() []uint16 {
	var targets []uint16
	for addr := int(a.start); addr < a.end; addr++ {
		if a.types[addr].HasLabelTarget() {
			targets = append(targets, uint16(addr))
		}
	}
	return targets
}

func (a *Analyzer) ranges(typ Type) []Range {
	var (
		ranges  []Range
		inRange bool
		start   uint16
	)

	for addr := int(a.start); addr < a.end; addr++ {
		matches := a.types[addr].Is(typ)
		switch {
		case matches && !inRange:
			start = uint16(addr)
			inRange = true
		case !matches && inRange:
			ranges = append(ranges, Range{Start: start, End: uint16(addr - 1)})
			inRange = false
		}
	}
	if inRange {
		ranges = append(ranges, Range{Start: start, End: uint16(a.end - 1)})
	}
	return ranges
}
