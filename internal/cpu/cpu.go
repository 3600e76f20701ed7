// Package cpu implements a 6510 trace engine that executes SID player code and
// records how every byte of the address space was used.
package cpu

import (
	"github.com/retroenv/retrogolib/log"
)

// AccessFlag describes how an address was accessed during execution.
type AccessFlag uint8

// access flags.
const (
	Execute AccessFlag = 1 << iota
	Read
	Write
	JumpTarget
	OpCode
)

// Is returns whether any of the given flags is set.
func (a AccessFlag) Is(flag AccessFlag) bool {
	return a&flag != 0
}

// SourceKind defines where the value that was last written to an address originated from.
type SourceKind uint8

// source kinds.
const (
	Unknown SourceKind = iota
	Immediate
	Register
	Memory
)

func (k SourceKind) String() string {
	switch k {
	case Immediate:
		return "immediate"
	case Register:
		return "register"
	case Memory:
		return "memory"
	default:
		return "unknown"
	}
}

// Source is the provenance of a register or memory value.
type Source struct {
	Kind    SourceKind
	Address uint16 // only set for Memory
	Value   byte
}

// IndirectAccessFunc gets called for every access through a zero page pointer.
type IndirectAccessFunc func(pc uint16, zeroPage uint8, effective uint16)

// RelocationFunc gets called when an absolute operand is used whose low and high
// byte were both copied from memory, for example by self modifying code.
type RelocationFunc func(operand uint16, effective uint16)

// status flags.
const (
	flagCarry     = 0x01
	flagZero      = 0x02
	flagInterrupt = 0x04
	flagDecimal   = 0x08
	flagBreak     = 0x10
	flagUnused    = 0x20
	flagOverflow  = 0x40
	flagNegative  = 0x80
)

const (
	stackBase    = 0x0100
	addressSpace = 0x10000
)

// DefaultMaxSteps is the maximum number of instructions a single Call executes.
const DefaultMaxSteps = 30000

// CPU is a 6510 interpreter with access and provenance tracking.
type CPU struct {
	logger *log.Logger

	memory      []byte
	access      []AccessFlag
	lastWrite   []uint16
	writeSource []Source
	indexRanges map[uint16]IndexRange

	A, X, Y byte
	SP      byte
	Status  byte
	PC      uint16

	sourceA, sourceX, sourceY Source

	instructionPC uint16
	steps         uint64
	maxSteps      int

	onIndirectAccess IndirectAccessFunc
	onRelocation     RelocationFunc
}

// New returns a new CPU with a cleared 64 KiB address space.
func New(logger *log.Logger) *CPU {
	c := &CPU{
		logger:      logger,
		memory:      make([]byte, addressSpace),
		access:      make([]AccessFlag, addressSpace),
		lastWrite:   make([]uint16, addressSpace),
		writeSource: make([]Source, addressSpace),
		indexRanges: make(map[uint16]IndexRange),
		maxSteps:    DefaultMaxSteps,
	}
	c.ResetRegisters()
	return c
}

// SetIndirectAccessHandler sets the handler for zero page pointer dereferences.
func (c *CPU) SetIndirectAccessHandler(fn IndirectAccessFunc) {
	c.onIndirectAccess = fn
}

// SetRelocationHandler sets the handler for absolute operands built from memory copies.
func (c *CPU) SetRelocationHandler(fn RelocationFunc) {
	c.onRelocation = fn
}

// SetMaxSteps sets the instruction limit of a single Call.
func (c *CPU) SetMaxSteps(steps int) {
	c.maxSteps = steps
}

// ResetRegisters resets all registers and flags to their power on state.
func (c *CPU) ResetRegisters() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD
	c.Status = flagInterrupt | flagUnused
	c.sourceA, c.sourceX, c.sourceY = Source{}, Source{}, Source{}
}

// Load copies data into memory without any access tracking.
func (c *CPU) Load(address uint16, data []byte) {
	for i, b := range data {
		c.memory[(int(address)+i)&0xFFFF] = b
	}
}

// Memory returns the current content of the address space.
func (c *CPU) Memory() []byte {
	return c.memory
}

// Snapshot returns a copy of the current address space.
func (c *CPU) Snapshot() []byte {
	snapshot := make([]byte, len(c.memory))
	copy(snapshot, c.memory)
	return snapshot
}

// Restore replaces the address space content with the given snapshot.
// Access tracking information is kept.
func (c *CPU) Restore(snapshot []byte) {
	copy(c.memory, snapshot)
}

// Access returns the access flags of an address.
func (c *CPU) Access(address uint16) AccessFlag {
	return c.access[address]
}

// LastWriteTo returns the address of the instruction that last wrote to the address.
func (c *CPU) LastWriteTo(address uint16) uint16 {
	return c.lastWrite[address]
}

// WriteSource returns the provenance of the value last written to the address.
func (c *CPU) WriteSource(address uint16) Source {
	return c.writeSource[address]
}

// Steps returns the total number of executed instructions.
func (c *CPU) Steps() uint64 {
	return c.steps
}

// IndexRange returns the observed index register range for the indexed
// instruction whose operand starts at the given address.
func (c *CPU) IndexRange(operand uint16) (byte, byte) {
	r, ok := c.indexRanges[operand]
	if !ok {
		return 0, 0
	}
	return r.Min, r.Max
}

// IndexRange is the range of index register values used by an indexed instruction.
type IndexRange struct {
	Min byte
	Max byte
}

func (c *CPU) recordIndex(operand uint16, index byte) {
	r, ok := c.indexRanges[operand]
	if !ok {
		c.indexRanges[operand] = IndexRange{Min: index, Max: index}
		return
	}
	r.Min = min(r.Min, index)
	r.Max = max(r.Max, index)
	c.indexRanges[operand] = r
}

func (c *CPU) fetch(address uint16) byte {
	c.access[address] |= Execute
	return c.memory[address]
}

func (c *CPU) read(address uint16) byte {
	c.access[address] |= Read
	return c.memory[address]
}

func (c *CPU) write(address uint16, value byte, source Source) {
	c.access[address] |= Write
	c.memory[address] = value
	c.lastWrite[address] = c.instructionPC
	c.writeSource[address] = source
}

func (c *CPU) push(value byte) {
	address := stackBase | uint16(c.SP)
	c.write(address, value, Source{Kind: Register, Value: value})
	c.SP--
}

func (c *CPU) pull() byte {
	c.SP++
	return c.read(stackBase | uint16(c.SP))
}

func (c *CPU) setFlag(flag byte, set bool) {
	if set {
		c.Status |= flag
	} else {
		c.Status &^= flag
	}
}

func (c *CPU) flag(flag byte) bool {
	return c.Status&flag != 0
}

func (c *CPU) setZN(value byte) {
	c.setFlag(flagZero, value == 0)
	c.setFlag(flagNegative, value&0x80 != 0)
}
