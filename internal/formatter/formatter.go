// Package formatter renders instructions and data bytes as KickAssembler source lines.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/retrogolib/arch/cpu/cpu6502"
	"github.com/retroenv/sidreloc/internal/cpu"
	"github.com/retroenv/sidreloc/internal/labels"
	"github.com/retroenv/sidreloc/internal/memory"
)

const (
	indent           = "    "
	dataBytesPerLine = 16
)

// CIA 1 timer A registers, writes to them are patched out as the player
// timing is controlled by the caller.
const (
	ciaTimerLow  = 0xDC04
	ciaTimerHigh = 0xDC05
)

// PointerByte is a data byte that holds one half of the address Target.
type PointerByte struct {
	Target uint16
	High   bool
}

// IndexRanges provides the observed index register ranges of indexed instructions.
type IndexRanges interface {
	IndexRange(operand uint16) (byte, byte)
}

// TypeSource provides the memory classification.
type TypeSource interface {
	TypeAt(address uint16) memory.Type
}

// Options of the formatter.
type Options struct {
	ZeroUnused bool // output data bytes that were never accessed as zero
}

// Formatter formats instructions and data runs.
type Formatter struct {
	memory  []byte
	lookup  labels.Lookup
	indexes IndexRanges
	options Options
}

// New returns a new formatter that decodes instructions from the given 64 KiB memory.
func New(memory []byte, lookup labels.Lookup, indexes IndexRanges, options Options) *Formatter {
	return &Formatter{
		memory:  memory,
		lookup:  lookup,
		indexes: indexes,
		options: options,
	}
}

func (f *Formatter) byteAt(address uint16) byte {
	return f.memory[address]
}

func (f *Formatter) wordAt(address uint16) uint16 {
	return uint16(f.byteAt(address)) | uint16(f.byteAt(address+1))<<8
}

// FormatInstruction formats the instruction at pc and advances pc to the next instruction.
func (f *Formatter) FormatInstruction(pc *uint16) string {
	address := *pc
	opcode := f.byteAt(address)
	op := cpu6502.Opcodes[opcode]
	if op.Instruction == nil {
		*pc = address + 1
		return fmt.Sprintf("%s.byte $%02x", indent, opcode)
	}

	name := op.Instruction.Name
	size := cpu.InstructionSize(opcode)
	*pc = address + size

	if op.Addressing == cpu6502.AbsoluteAddressing {
		target := f.wordAt(address + 1)
		if isCIATimerStore(name, target) {
			return fmt.Sprintf("%sbit $abcd   //; disabled %s $%04X (CIA Timer)", indent, name, target)
		}
	}

	if size == 1 {
		return indent + name
	}
	return fmt.Sprintf("%s%s %s", indent, name, f.formatOperand(address, op.Addressing))
}

func isCIATimerStore(name string, target uint16) bool {
	if target != ciaTimerLow && target != ciaTimerHigh {
		return false
	}
	return name == cpu6502.StaInst.Name || name == cpu6502.StxInst.Name || name == cpu6502.StyInst.Name
}

func (f *Formatter) formatOperand(pc uint16, mode cpu6502.AddressingMode) string {
	switch mode {
	case cpu6502.ImmediateAddressing:
		return fmt.Sprintf("#$%02X", f.byteAt(pc+1))

	case cpu6502.ZeroPageAddressing:
		return f.lookup.FormatZeroPage(f.byteAt(pc + 1))

	case cpu6502.ZeroPageXAddressing:
		return f.lookup.FormatZeroPage(f.byteAt(pc+1)) + ",X"

	case cpu6502.ZeroPageYAddressing:
		return f.lookup.FormatZeroPage(f.byteAt(pc+1)) + ",Y"

	case cpu6502.IndirectXAddressing:
		return "(" + f.lookup.FormatZeroPage(f.byteAt(pc+1)) + ",X)"

	case cpu6502.IndirectYAddressing:
		return "(" + f.lookup.FormatZeroPage(f.byteAt(pc+1)) + "),Y"

	case cpu6502.AbsoluteAddressing:
		return f.lookup.FormatAddress(f.wordAt(pc + 1))

	case cpu6502.AbsoluteXAddressing:
		return f.formatIndexed(pc, "X")

	case cpu6502.AbsoluteYAddressing:
		return f.formatIndexed(pc, "Y")

	case cpu6502.IndirectAddressing:
		return fmt.Sprintf("($%04X)", f.wordAt(pc+1))

	case cpu6502.RelativeAddressing:
		target := pc + 2 + uint16(int8(f.byteAt(pc+1)))
		return f.lookup.FormatAddress(target)

	default:
		return ""
	}
}

// formatIndexed uses the label of the lowest accessed address if there is one,
// so that tables which are only accessed with an index offset keep their label.
func (f *Formatter) formatIndexed(pc uint16, register string) string {
	base := f.wordAt(pc + 1)
	minIndex, _ := f.indexes.IndexRange(pc + 1)

	if label, ok := f.lookup.LabelAt(base + uint16(minIndex)); ok {
		if minIndex == 0 {
			return label + "," + register
		}
		return fmt.Sprintf("%s-%d,%s", label, minIndex, register)
	}
	return f.lookup.FormatAddress(base) + "," + register
}

// FormatDataRun writes the data bytes starting at pc until the next non data
// byte or end and advances pc. Pointer bytes are written as address
// expressions. It returns the number of bytes that were output as zero
// because they were never accessed.
func (f *Formatter) FormatDataRun(w io.Writer, pc *uint16, original []byte, base uint16, end int,
	pointers map[uint16]PointerByte, types TypeSource) (int, error) {

	unused := 0
	addr := int(*pc)
	defer func() {
		*pc = uint16(addr)
	}()

	isData := func(a int) bool {
		return a < end && types.TypeAt(uint16(a)).HasData()
	}

	for isData(addr) {
		if label, ok := f.lookup.LabelAt(uint16(addr)); ok {
			if _, err := fmt.Fprintf(w, "%s:\n", label); err != nil {
				return unused, fmt.Errorf("writing label: %w", err)
			}
		}

		if pointer, ok := pointers[uint16(addr)]; ok {
			operator := "<"
			if pointer.High {
				operator = ">"
			}
			if _, err := fmt.Fprintf(w, "%s.byte %s(%s)\n", indent, operator, f.lookup.FormatAddress(pointer.Target)); err != nil {
				return unused, fmt.Errorf("writing pointer byte: %w", err)
			}
			addr++
			continue
		}

		var values []string
		for isData(addr) {
			if _, ok := pointers[uint16(addr)]; ok {
				break
			}

			b, zeroed := f.dataByte(uint16(addr), original, base, types)
			if zeroed {
				unused++
			}
			values = append(values, fmt.Sprintf("$%02X", b))
			addr++

			if addr >= end || types.TypeAt(uint16(addr)).HasCode() {
				break
			}
			if _, ok := f.lookup.LabelAt(uint16(addr)); ok {
				break
			}
		}

		if err := writeDataLines(w, values); err != nil {
			return unused, err
		}
	}

	return unused, nil
}

func (f *Formatter) dataByte(address uint16, original []byte, base uint16, types TypeSource) (byte, bool) {
	if f.options.ZeroUnused && !types.TypeAt(address).Is(memory.Accessed|memory.LabelTarget) {
		return 0, true
	}

	offset := int(address) - int(base)
	if offset >= 0 && offset < len(original) {
		return original[offset], false
	}
	return f.byteAt(address), false
}

func writeDataLines(w io.Writer, values []string) error {
	for len(values) > 0 {
		n := min(len(values), dataBytesPerLine)
		if _, err := fmt.Fprintf(w, "%s.byte %s\n", indent, strings.Join(values[:n], ", ")); err != nil {
			return fmt.Errorf("writing data bytes: %w", err)
		}
		values = values[n:]
	}
	return nil
}
