package cpu

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/cpu6502"
)

var (
	// ErrIllegalOpcode is returned when an opcode without a known instruction is executed.
	ErrIllegalOpcode = errors.New("illegal opcode")
	// ErrIllegalAddress is returned when execution continues at an invalid address.
	ErrIllegalAddress = errors.New("illegal execution address")
	// ErrStepLimit is returned when a call does not return within the step limit.
	ErrStepLimit = errors.New("step limit reached")

	errBreak = errors.New("break")
)

// callReturn is the address that a simulated call returns to, the
// pushed return address is one less as rts increments it.
const (
	callReturn     = 0x0000
	callReturnPush = 0xFFFF
)

// Call simulates a jsr to the given address and executes until the matching rts.
func (c *CPU) Call(address uint16) error {
	c.push(byte(callReturnPush >> 8))
	c.push(byte(callReturnPush & 0xFF))
	c.PC = address

	for range c.maxSteps {
		switch {
		case c.PC == callReturn:
			return nil
		case c.PC < 2:
			return fmt.Errorf("%w $%04X", ErrIllegalAddress, c.PC)
		}

		if err := c.Step(); err != nil {
			if errors.Is(err, errBreak) {
				return nil
			}
			return err
		}
	}
	return fmt.Errorf("%w: call to $%04X", ErrStepLimit, address)
}

// Step executes a single instruction.
func (c *CPU) Step() error {
	pc := c.PC
	c.instructionPC = pc

	b := c.fetch(pc)
	c.access[pc] |= OpCode
	op := cpu6502.Opcodes[b]
	if op.Instruction == nil || isJam(b) {
		return fmt.Errorf("%w $%02X at $%04X", ErrIllegalOpcode, b, pc)
	}

	size := operandSize[op.Addressing]
	var lo, hi byte
	if size > 0 {
		lo = c.fetch(pc + 1)
	}
	if size > 1 {
		hi = c.fetch(pc + 2)
	}
	c.PC = pc + 1 + size
	c.steps++

	address := c.resolve(op.Addressing, pc, lo, hi)
	return c.execute(op.Instruction.Name, op.Addressing, address)
}

// isJam returns whether the opcode halts the processor.
func isJam(opcode byte) bool {
	return opcode&0x0F == 0x02 && opcode != 0x82 && opcode != 0xA2 && opcode != 0xC2 && opcode != 0xE2
}

// load reads the operand value and returns it together with its provenance.
func (c *CPU) load(mode cpu6502.AddressingMode, address uint16) (byte, Source) {
	if mode == cpu6502.ImmediateAddressing {
		value := c.memory[address]
		return value, Source{Kind: Immediate, Value: value}
	}
	value := c.read(address)
	return value, Source{Kind: Memory, Address: address, Value: value}
}

// modify runs a read-modify-write operation on the accumulator or memory.
func (c *CPU) modify(mode cpu6502.AddressingMode, address uint16, fn func(byte) byte) byte {
	if mode == cpu6502.AccumulatorAddressing || mode == cpu6502.ImpliedAddressing {
		c.A = fn(c.A)
		c.sourceA = Source{Kind: Register, Value: c.A}
		return c.A
	}
	value := fn(c.read(address))
	c.write(address, value, Source{Kind: Register, Value: value})
	return value
}

func (c *CPU) setA(value byte) {
	c.A = value
	c.sourceA = Source{Kind: Register, Value: value}
	c.setZN(value)
}

//nolint:funlen,gocyclo,cyclop,maintidx // instruction dispatch
func (c *CPU) execute(name string, mode cpu6502.AddressingMode, address uint16) error {
	switch name {
	case cpu6502.LdaInst.Name:
		c.A, c.sourceA = c.load(mode, address)
		c.setZN(c.A)
	case cpu6502.LdxInst.Name:
		c.X, c.sourceX = c.load(mode, address)
		c.setZN(c.X)
	case cpu6502.LdyInst.Name:
		c.Y, c.sourceY = c.load(mode, address)
		c.setZN(c.Y)
	case cpu6502.LaxInst.Name:
		c.A, c.sourceA = c.load(mode, address)
		c.X, c.sourceX = c.A, c.sourceA
		c.setZN(c.A)

	case cpu6502.StaInst.Name:
		c.write(address, c.A, c.sourceA)
	case cpu6502.StxInst.Name:
		c.write(address, c.X, c.sourceX)
	case cpu6502.StyInst.Name:
		c.write(address, c.Y, c.sourceY)
	case cpu6502.SaxInst.Name:
		value := c.A & c.X
		c.write(address, value, Source{Kind: Register, Value: value})

	case cpu6502.TaxInst.Name:
		c.X, c.sourceX = c.A, c.sourceA
		c.setZN(c.X)
	case cpu6502.TayInst.Name:
		c.Y, c.sourceY = c.A, c.sourceA
		c.setZN(c.Y)
	case cpu6502.TxaInst.Name:
		c.A, c.sourceA = c.X, c.sourceX
		c.setZN(c.A)
	case cpu6502.TyaInst.Name:
		c.A, c.sourceA = c.Y, c.sourceY
		c.setZN(c.A)
	case cpu6502.TsxInst.Name:
		c.X = c.SP
		c.sourceX = Source{Kind: Register, Value: c.X}
		c.setZN(c.X)
	case cpu6502.TxsInst.Name:
		c.SP = c.X

	case cpu6502.AdcInst.Name:
		value, _ := c.load(mode, address)
		c.adc(value)
	case cpu6502.SbcInst.Name:
		value, _ := c.load(mode, address)
		c.sbc(value)
	case cpu6502.AndInst.Name:
		value, _ := c.load(mode, address)
		c.setA(c.A & value)
	case cpu6502.OraInst.Name:
		value, _ := c.load(mode, address)
		c.setA(c.A | value)
	case cpu6502.EorInst.Name:
		value, _ := c.load(mode, address)
		c.setA(c.A ^ value)
	case cpu6502.BitInst.Name:
		value := c.read(address)
		c.setFlag(flagZero, c.A&value == 0)
		c.setFlag(flagOverflow, value&0x40 != 0)
		c.setFlag(flagNegative, value&0x80 != 0)
	case cpu6502.CmpInst.Name:
		value, _ := c.load(mode, address)
		c.compare(c.A, value)
	case cpu6502.CpxInst.Name:
		value, _ := c.load(mode, address)
		c.compare(c.X, value)
	case cpu6502.CpyInst.Name:
		value, _ := c.load(mode, address)
		c.compare(c.Y, value)

	case cpu6502.AslInst.Name:
		c.setZN(c.modify(mode, address, c.asl))
	case cpu6502.LsrInst.Name:
		c.setZN(c.modify(mode, address, c.lsr))
	case cpu6502.RolInst.Name:
		c.setZN(c.modify(mode, address, c.rol))
	case cpu6502.RorInst.Name:
		c.setZN(c.modify(mode, address, c.ror))
	case cpu6502.IncInst.Name:
		c.setZN(c.modify(mode, address, func(b byte) byte { return b + 1 }))
	case cpu6502.DecInst.Name:
		c.setZN(c.modify(mode, address, func(b byte) byte { return b - 1 }))

	case cpu6502.InxInst.Name:
		c.X++
		c.sourceX = Source{Kind: Register, Value: c.X}
		c.setZN(c.X)
	case cpu6502.InyInst.Name:
		c.Y++
		c.sourceY = Source{Kind: Register, Value: c.Y}
		c.setZN(c.Y)
	case cpu6502.DexInst.Name:
		c.X--
		c.sourceX = Source{Kind: Register, Value: c.X}
		c.setZN(c.X)
	case cpu6502.DeyInst.Name:
		c.Y--
		c.sourceY = Source{Kind: Register, Value: c.Y}
		c.setZN(c.Y)

	case "slo":
		c.setA(c.A | c.modify(mode, address, c.asl))
	case "rla":
		c.setA(c.A & c.modify(mode, address, c.rol))
	case "sre":
		c.setA(c.A ^ c.modify(mode, address, c.lsr))
	case "rra":
		c.adc(c.modify(mode, address, c.ror))
	case "dcp":
		c.compare(c.A, c.modify(mode, address, func(b byte) byte { return b - 1 }))
	case "isc", "isb":
		c.sbc(c.modify(mode, address, func(b byte) byte { return b + 1 }))
	case "anc":
		value, _ := c.load(mode, address)
		c.setA(c.A & value)
		c.setFlag(flagCarry, c.A&0x80 != 0)
	case "alr", "asr":
		value, _ := c.load(mode, address)
		c.setA(c.lsr(c.A & value))
	case "arr":
		value, _ := c.load(mode, address)
		c.setA(c.ror(c.A & value))
		c.setFlag(flagCarry, c.A&0x40 != 0)
		c.setFlag(flagOverflow, (c.A>>6^c.A>>5)&1 != 0)
	case "axs", "sbx":
		value, _ := c.load(mode, address)
		ax := c.A & c.X
		c.setFlag(flagCarry, ax >= value)
		c.X = ax - value
		c.sourceX = Source{Kind: Register, Value: c.X}
		c.setZN(c.X)

	case cpu6502.PhaInst.Name:
		c.push(c.A)
	case cpu6502.PhpInst.Name:
		c.push(c.Status | flagBreak | flagUnused)
	case cpu6502.PlaInst.Name:
		c.setA(c.pull())
	case cpu6502.PlpInst.Name:
		c.Status = c.pull()&^flagBreak | flagUnused

	case cpu6502.ClcInst.Name:
		c.setFlag(flagCarry, false)
	case cpu6502.SecInst.Name:
		c.setFlag(flagCarry, true)
	case cpu6502.CldInst.Name:
		c.setFlag(flagDecimal, false)
	case cpu6502.SedInst.Name:
		c.setFlag(flagDecimal, true)
	case cpu6502.CliInst.Name:
		c.setFlag(flagInterrupt, false)
	case cpu6502.SeiInst.Name:
		c.setFlag(flagInterrupt, true)
	case cpu6502.ClvInst.Name:
		c.setFlag(flagOverflow, false)

	case cpu6502.BccInst.Name:
		c.branch(!c.flag(flagCarry), address)
	case cpu6502.BcsInst.Name:
		c.branch(c.flag(flagCarry), address)
	case cpu6502.BneInst.Name:
		c.branch(!c.flag(flagZero), address)
	case cpu6502.BeqInst.Name:
		c.branch(c.flag(flagZero), address)
	case cpu6502.BplInst.Name:
		c.branch(!c.flag(flagNegative), address)
	case cpu6502.BmiInst.Name:
		c.branch(c.flag(flagNegative), address)
	case cpu6502.BvcInst.Name:
		c.branch(!c.flag(flagOverflow), address)
	case cpu6502.BvsInst.Name:
		c.branch(c.flag(flagOverflow), address)

	case cpu6502.JmpInst.Name:
		c.access[address] |= JumpTarget
		c.PC = address
	case cpu6502.JsrInst.Name:
		c.access[address] |= JumpTarget
		ret := c.PC - 1
		c.push(byte(ret >> 8))
		c.push(byte(ret))
		c.PC = address
	case cpu6502.RtsInst.Name:
		lo := uint16(c.pull())
		hi := uint16(c.pull())
		c.PC = (hi<<8 | lo) + 1
	case cpu6502.RtiInst.Name:
		c.Status = c.pull()&^flagBreak | flagUnused
		lo := uint16(c.pull())
		hi := uint16(c.pull())
		c.PC = hi<<8 | lo
	case cpu6502.BrkInst.Name:
		return errBreak

	default:
		// nop and unsupported unofficial instructions only consume their operands
	}
	return nil
}

func (c *CPU) branch(taken bool, target uint16) {
	if !taken {
		return
	}
	c.access[target] |= JumpTarget
	c.PC = target
}

func (c *CPU) compare(register, value byte) {
	c.setFlag(flagCarry, register >= value)
	c.setZN(register - value)
}

func (c *CPU) asl(value byte) byte {
	c.setFlag(flagCarry, value&0x80 != 0)
	return value << 1
}

func (c *CPU) lsr(value byte) byte {
	c.setFlag(flagCarry, value&0x01 != 0)
	return value >> 1
}

func (c *CPU) rol(value byte) byte {
	carry := c.Status & flagCarry
	c.setFlag(flagCarry, value&0x80 != 0)
	return value<<1 | carry
}

func (c *CPU) ror(value byte) byte {
	carry := (c.Status & flagCarry) << 7
	c.setFlag(flagCarry, value&0x01 != 0)
	return value>>1 | carry
}

func (c *CPU) adc(value byte) {
	carry := uint16(c.Status & flagCarry)

	if c.flag(flagDecimal) {
		lo := uint16(c.A&0x0F) + uint16(value&0x0F) + carry
		if lo > 0x09 {
			lo += 0x06
		}
		hi := uint16(c.A>>4) + uint16(value>>4)
		if lo > 0x0F {
			hi++
		}
		binary := uint16(c.A) + uint16(value) + carry
		c.setFlag(flagZero, byte(binary) == 0)
		c.setFlag(flagNegative, hi&0x08 != 0)
		c.setFlag(flagOverflow, (^(c.A^value))&(c.A^byte(hi<<4))&0x80 != 0)
		if hi > 0x09 {
			hi += 0x06
		}
		c.setFlag(flagCarry, hi > 0x0F)
		c.A = byte(hi<<4 | lo&0x0F)
		c.sourceA = Source{Kind: Register, Value: c.A}
		return
	}

	sum := uint16(c.A) + uint16(value) + carry
	result := byte(sum)
	c.setFlag(flagCarry, sum > 0xFF)
	c.setFlag(flagOverflow, (^(c.A^value))&(c.A^result)&0x80 != 0)
	c.setA(result)
}

func (c *CPU) sbc(value byte) {
	borrow := uint16(1 - c.Status&flagCarry)
	diff := uint16(c.A) - uint16(value) - borrow
	result := byte(diff)

	if c.flag(flagDecimal) {
		lo := int(c.A&0x0F) - int(value&0x0F) - int(borrow)
		hi := int(c.A>>4) - int(value>>4)
		if lo < 0 {
			lo -= 6
			hi--
		}
		if hi < 0 {
			hi -= 6
		}
		c.setFlag(flagCarry, diff < 0x100)
		c.setFlag(flagOverflow, (c.A^value)&(c.A^result)&0x80 != 0)
		c.setZN(result)
		c.A = byte(hi<<4) | byte(lo&0x0F)
		c.sourceA = Source{Kind: Register, Value: c.A}
		return
	}

	c.setFlag(flagCarry, diff < 0x100)
	c.setFlag(flagOverflow, (c.A^value)&(c.A^result)&0x80 != 0)
	c.setA(result)
}
