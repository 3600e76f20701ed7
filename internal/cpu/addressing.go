package cpu

import (
	"github.com/retroenv/retrogolib/arch/cpu/cpu6502"
)

var operandSize = map[cpu6502.AddressingMode]uint16{
	cpu6502.ImpliedAddressing:     0,
	cpu6502.AccumulatorAddressing: 0,
	cpu6502.ImmediateAddressing:   1,
	cpu6502.ZeroPageAddressing:    1,
	cpu6502.ZeroPageXAddressing:   1,
	cpu6502.ZeroPageYAddressing:   1,
	cpu6502.RelativeAddressing:    1,
	cpu6502.IndirectXAddressing:   1,
	cpu6502.IndirectYAddressing:   1,
	cpu6502.AbsoluteAddressing:    2,
	cpu6502.AbsoluteXAddressing:   2,
	cpu6502.AbsoluteYAddressing:   2,
	cpu6502.IndirectAddressing:    2,
}

// InstructionSize returns the size in bytes of the instruction with the given opcode.
// Unknown opcodes have a size of 1.
func InstructionSize(opcode byte) uint16 {
	op := cpu6502.Opcodes[opcode]
	if op.Instruction == nil {
		return 1
	}
	return 1 + operandSize[op.Addressing]
}

// resolve returns the effective address of the operand of the instruction at pc.
// For immediate addressing the address of the operand byte is returned.
func (c *CPU) resolve(mode cpu6502.AddressingMode, pc uint16, lo, hi byte) uint16 {
	word := uint16(hi)<<8 | uint16(lo)

	switch mode {
	case cpu6502.ImmediateAddressing:
		return pc + 1

	case cpu6502.ZeroPageAddressing:
		return uint16(lo)

	case cpu6502.ZeroPageXAddressing:
		c.recordIndex(pc+1, c.X)
		return uint16(lo + c.X)

	case cpu6502.ZeroPageYAddressing:
		c.recordIndex(pc+1, c.Y)
		return uint16(lo + c.Y)

	case cpu6502.AbsoluteAddressing:
		c.checkRelocation(pc+1, word)
		return word

	case cpu6502.AbsoluteXAddressing:
		c.recordIndex(pc+1, c.X)
		c.checkRelocation(pc+1, word)
		return word + uint16(c.X)

	case cpu6502.AbsoluteYAddressing:
		c.recordIndex(pc+1, c.Y)
		c.checkRelocation(pc+1, word)
		return word + uint16(c.Y)

	case cpu6502.IndirectAddressing:
		c.checkRelocation(pc+1, word)
		// the 6502 does not carry into the high byte when fetching the pointer
		target := uint16(c.read(word))
		target |= uint16(c.read(word&0xFF00|(word+1)&0x00FF)) << 8
		return target

	case cpu6502.IndirectXAddressing:
		zp := lo + c.X
		c.recordIndex(pc+1, c.X)
		effective := c.readZeroPageWord(zp)
		if c.onIndirectAccess != nil {
			c.onIndirectAccess(pc, zp, effective)
		}
		return effective

	case cpu6502.IndirectYAddressing:
		c.recordIndex(pc+1, c.Y)
		effective := c.readZeroPageWord(lo) + uint16(c.Y)
		if c.onIndirectAccess != nil {
			c.onIndirectAccess(pc, lo, effective)
		}
		return effective

	case cpu6502.RelativeAddressing:
		return pc + 2 + uint16(int8(lo))

	default:
		return 0
	}
}

func (c *CPU) readZeroPageWord(zp byte) uint16 {
	return uint16(c.read(uint16(zp))) | uint16(c.read(uint16(zp+1)))<<8
}

// checkRelocation reports absolute operands whose both bytes were copied from memory.
func (c *CPU) checkRelocation(operand, value uint16) {
	if c.onRelocation == nil {
		return
	}
	if c.writeSource[operand].Kind == Memory && c.writeSource[operand+1].Kind == Memory {
		c.onRelocation(operand, value)
	}
}
