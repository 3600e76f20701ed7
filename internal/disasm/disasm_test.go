package disasm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/cpu"
	"github.com/retroenv/sidreloc/internal/sid"
)

const testLoad = 0x1000

func runProgram(t *testing.T, code []byte) *Disasm {
	t.Helper()
	logger := log.NewTestLogger(t)

	file, err := sid.LoadBinary(code, testLoad, testLoad, testLoad)
	assert.NoError(t, err)

	c := cpu.New(logger)
	dis := New(logger, file, c, Options{Version: "sidreloc test"})
	c.Load(testLoad, code)
	assert.NoError(t, c.Call(testLoad))

	dis.Analyze()
	return dis
}

func generate(t *testing.T, dis *Disasm) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := dis.GenerateAsm(&buf, Addresses{Load: testLoad, Init: testLoad, Play: testLoad})
	assert.NoError(t, err)
	return buf.String()
}

func codeLine(instruction string, start, end uint16) string {
	return fmt.Sprintf("%s //; $%04X - %04X\n", padToColumn(instruction, commentColumn), start, end)
}

func TestHardwareConstants(t *testing.T) {
	tests := []struct {
		name     string
		code     []byte
		expected []string
	}{
		{
			name:     "no access uses default",
			code:     []byte{0x60}, // rts
			expected: []string{".const SID0 = $D400\n\n"},
		},
		{
			name: "registers of one block",
			code: []byte{
				0x8D, 0x00, 0xD4, // sta $d400
				0x8D, 0x1B, 0xD4, // sta $d41b
				0x60,
			},
			expected: []string{
				".const SID0 = $D400\n\n",
				"    sta SID0 ",
				"    sta SID0+27 ",
			},
		},
		{
			name: "second sid",
			code: []byte{
				0x8D, 0x18, 0xD4, // sta $d418
				0x8D, 0x38, 0xD4, // sta $d438
				0x60,
			},
			expected: []string{
				".const SID0 = $D400\n.const SID1 = $D420\n\n",
				"    sta SID0+24 ",
				"    sta SID1+24 ",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := generate(t, runProgram(t, tt.code))
			for _, s := range tt.expected {
				assert.True(t, strings.Contains(output, s), s)
			}
		})
	}
}

func TestZeroPageConstants(t *testing.T) {
	code := []byte{
		0x85, 0xFA, // sta $fa
		0x85, 0x02, // sta $02
		0x85, 0x05, // sta $05
		0x60,
	}
	output := generate(t, runProgram(t, code))

	expected := ".const ZP_BASE = $FD\n" +
		".const ZP_0 = ZP_BASE + 0 // $02\n" +
		".const ZP_1 = ZP_BASE + 1 // $05\n" +
		".const ZP_2 = ZP_BASE + 2 // $FA\n\n"
	assert.True(t, strings.Contains(output, expected))
	assert.True(t, strings.Contains(output, codeLine("    sta ZP_2", 0x1000, 0x1001)))
	assert.True(t, strings.Contains(output, codeLine("    sta ZP_0", 0x1002, 0x1003)))
	assert.True(t, strings.Contains(output, codeLine("    sta ZP_1", 0x1004, 0x1005)))
}

func TestNoZeroPageConstants(t *testing.T) {
	output := generate(t, runProgram(t, []byte{0x60}))
	assert.False(t, strings.Contains(output, "ZP_BASE"))
}

func TestGenerateAsm(t *testing.T) {
	code := []byte{
		0xAD, 0x10, 0x10, // lda $1010
		0x85, 0xFB, // sta $fb
		0xAD, 0x11, 0x10, // lda $1011
		0x85, 0xFC, // sta $fc
		0xA0, 0x00, // ldy #$00
		0xB1, 0xFB, // lda ($fb),y
		0x60,       // rts
		0x00,       // unused
		0x12, 0x10, // pointer to $1012
		0xAA,
	}
	dis := runProgram(t, code)

	entry, ok := dis.RelocationTable().Get(0x1010)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x1012), entry.EffectiveAddress)

	var buf bytes.Buffer
	unused, err := dis.GenerateAsm(&buf, Addresses{Load: 0x2000, Init: 0x2000, Play: 0x2000})
	assert.NoError(t, err)
	assert.Equal(t, 0, unused)

	expected := headerLine +
		"//; Generated by sidreloc test\n" +
		"//; \n" +
		"//; Name: \n" +
		"//; Author: \n" +
		"//; Copyright: \n" +
		headerLine + "\n" +
		".const SIDLoad = $2000\n" +
		".const SID0 = $D400\n\n" +
		".const ZP_BASE = $FE\n" +
		".const ZP_0 = ZP_BASE + 0 // $FB\n" +
		".const ZP_1 = ZP_BASE + 1 // $FC\n\n" +
		"\n* = SIDLoad\n\n" +
		codeLine("    lda DataBlock_0_1", 0x1000, 0x1002) +
		codeLine("    sta ZP_0", 0x1003, 0x1004) +
		codeLine("    lda DataBlock_0_1+1", 0x1005, 0x1007) +
		codeLine("    sta ZP_1", 0x1008, 0x1009) +
		codeLine("    ldy #$00", 0x100A, 0x100B) +
		codeLine("    lda (ZP_0),Y", 0x100C, 0x100D) +
		codeLine("    rts", 0x100E, 0x100E) +
		"DataBlock_0_0:\n" +
		"    .byte $00\n" +
		"DataBlock_0_1:\n" +
		"    .byte <(DataBlock_0_1+2)\n" +
		"    .byte >(DataBlock_0_1+2)\n" +
		"    .byte $AA\n" +
		"//; 0 unused bytes zeroed out\n\n"
	assert.Equal(t, expected, buf.String())
}

func TestCodeLabels(t *testing.T) {
	code := []byte{
		0xA2, 0x02, // ldx #$02
		0xCA,       // dex
		0xD0, 0xFD, // bne $1002
		0x60,
	}
	output := generate(t, runProgram(t, code))

	assert.True(t, strings.Contains(output, "Label_0:\n"+codeLine("    dex", 0x1002, 0x1002)))
	assert.True(t, strings.Contains(output, codeLine("    bne Label_0", 0x1003, 0x1004)))
}

func TestGenerateAsmFile(t *testing.T) {
	dis := runProgram(t, []byte{0x60})
	fileName := filepath.Join(t.TempDir(), "out.asm")

	unused, err := dis.GenerateAsmFile(fileName, Addresses{Load: testLoad})
	assert.NoError(t, err)
	assert.Equal(t, 0, unused)

	data, err := os.ReadFile(fileName)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "* = SIDLoad"))
}

func TestGenerateAsmFileUnwritable(t *testing.T) {
	dis := runProgram(t, []byte{0x60})
	fileName := filepath.Join(t.TempDir(), "missing", "out.asm")

	unused, err := dis.GenerateAsmFile(fileName, Addresses{Load: testLoad})
	assert.Error(t, err)
	assert.Equal(t, 0, unused)

	_, err = os.Stat(fileName)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateAsmRepeated(t *testing.T) {
	code := []byte{
		0x8D, 0x18, 0xD4, // sta $d418
		0x8D, 0x38, 0xD4, // sta $d438
		0x60,
	}
	dis := runProgram(t, code)

	first := generate(t, dis)
	second := generate(t, dis)
	assert.Equal(t, first, second)
	assert.Len(t, dis.Labels().HardwareBases(), 2)
}
