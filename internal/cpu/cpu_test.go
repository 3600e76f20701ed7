package cpu

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func newTestCPU(t *testing.T, address uint16, code ...byte) *CPU {
	t.Helper()
	c := New(log.NewTestLogger(t))
	c.Load(address, code)
	return c
}

func TestCallReturns(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xA9, 0x10, // lda #$10
		0x18,       // clc
		0x69, 0x20, // adc #$20
		0x60, // rts
	)

	assert.NoError(t, c.Call(0x1000))
	assert.Equal(t, byte(0x30), c.A)
	assert.Equal(t, byte(0xFD), c.SP)
	assert.Equal(t, uint64(4), c.Steps())
}

func TestIndirectAccessProvenance(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xAD, 0x10, 0x10, // lda $1010
		0x85, 0x02, // sta $02
		0xAD, 0x11, 0x10, // lda $1011
		0x85, 0x03, // sta $03
		0xA0, 0x00, // ldy #$00
		0xB1, 0x02, // lda ($02),y
		0x60, // rts
	)
	c.Load(0x1010, []byte{0x00, 0x20})

	type access struct {
		pc        uint16
		zp        uint8
		effective uint16
	}
	var accesses []access
	c.SetIndirectAccessHandler(func(pc uint16, zp uint8, effective uint16) {
		accesses = append(accesses, access{pc: pc, zp: zp, effective: effective})
	})

	assert.NoError(t, c.Call(0x1000))
	assert.Equal(t, []access{{pc: 0x100C, zp: 0x02, effective: 0x2000}}, accesses)

	lo := c.WriteSource(0x02)
	assert.Equal(t, Memory, lo.Kind)
	assert.Equal(t, uint16(0x1010), lo.Address)
	hi := c.WriteSource(0x03)
	assert.Equal(t, Memory, hi.Kind)
	assert.Equal(t, uint16(0x1011), hi.Address)

	assert.Equal(t, uint16(0x1003), c.LastWriteTo(0x02))
	assert.Equal(t, uint16(0x1008), c.LastWriteTo(0x03))

	assert.True(t, c.Access(0x1000).Is(OpCode))
	assert.True(t, c.Access(0x1001).Is(Execute))
	assert.False(t, c.Access(0x1001).Is(OpCode))
	assert.True(t, c.Access(0x1010).Is(Read))
	assert.True(t, c.Access(0x2000).Is(Read))
	assert.True(t, c.Access(0x02).Is(Write))
}

func TestImmediateProvenance(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xA9, 0x00, // lda #$00
		0x85, 0x02, // sta $02
		0x60, // rts
	)

	assert.NoError(t, c.Call(0x1000))
	assert.Equal(t, Immediate, c.WriteSource(0x02).Kind)
}

func TestUndocumentedLoadStore(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xAF, 0x08, 0x10, // lax $1008
		0x86, 0x02, // stx $02
		0x87, 0x03, // sax $03
		0x60, // rts
		0x42,
	)

	assert.NoError(t, c.Call(0x1000))
	assert.Equal(t, byte(0x42), c.A)
	assert.Equal(t, byte(0x42), c.X)
	assert.Equal(t, Source{Kind: Memory, Address: 0x1008, Value: 0x42}, c.WriteSource(0x02))
	assert.Equal(t, Source{Kind: Register, Value: 0x42}, c.WriteSource(0x03))
}

func TestSelfModifiedOperandRelocation(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xAD, 0x10, 0x11, // lda $1110
		0x8D, 0x0D, 0x10, // sta $100D
		0xAD, 0x11, 0x11, // lda $1111
		0x8D, 0x0E, 0x10, // sta $100E
		0xAD, 0x00, 0x00, // lda $0000
		0x60, // rts
	)
	c.Load(0x1110, []byte{0x00, 0x20})

	var operands, values []uint16
	c.SetRelocationHandler(func(operand, value uint16) {
		operands = append(operands, operand)
		values = append(values, value)
	})

	assert.NoError(t, c.Call(0x1000))
	assert.Equal(t, []uint16{0x100D}, operands)
	assert.Equal(t, []uint16{0x2000}, values)
}

func TestBranchAndIndexRange(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xA2, 0x03, // ldx #$03
		0xBD, 0x00, 0x11, // lda $1100,x
		0xCA,       // dex
		0xD0, 0xFA, // bne $1002
		0x60, // rts
	)

	assert.NoError(t, c.Call(0x1000))
	assert.Equal(t, byte(0), c.X)
	assert.True(t, c.Access(0x1002).Is(JumpTarget))

	lo, hi := c.IndexRange(0x1003)
	assert.Equal(t, byte(1), lo)
	assert.Equal(t, byte(3), hi)
}

func TestStepLimit(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0x4C, 0x00, 0x10, // jmp $1000
	)
	c.SetMaxSteps(10)

	err := c.Call(0x1000)
	assert.True(t, errors.Is(err, ErrStepLimit))
	assert.True(t, c.Access(0x1000).Is(JumpTarget))
}

func TestJam(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xA2, 0x01, // ldx #$01
		0x02, // jam
	)

	err := c.Call(0x1000)
	assert.True(t, errors.Is(err, ErrIllegalOpcode))
	assert.Equal(t, byte(1), c.X)
}

func TestSnapshotRestore(t *testing.T) {
	c := newTestCPU(t, 0x1000,
		0xA9, 0x42, // lda #$42
		0x8D, 0x00, 0x20, // sta $2000
		0x60, // rts
	)
	snapshot := c.Snapshot()

	assert.NoError(t, c.Call(0x1000))
	assert.Equal(t, byte(0x42), c.Memory()[0x2000])

	c.Restore(snapshot)
	assert.Equal(t, byte(0), c.Memory()[0x2000])
	assert.True(t, c.Access(0x2000).Is(Write))
}

func TestInstructionSize(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		want   uint16
	}{
		{name: "implied", opcode: 0x60, want: 1},
		{name: "immediate", opcode: 0xA9, want: 2},
		{name: "absolute", opcode: 0xAD, want: 3},
		{name: "indirect y", opcode: 0xB1, want: 2},
		{name: "indirect jump", opcode: 0x6C, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InstructionSize(tt.opcode))
		})
	}
}
