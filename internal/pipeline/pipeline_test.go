package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/config"
	"github.com/retroenv/sidreloc/internal/options"
	"github.com/retroenv/sidreloc/internal/sid"
)

func createTestFile(t *testing.T) *sid.File {
	t.Helper()

	// init copies a pointer from the table at $1010 into zero page, play
	// reads through it
	code := []byte{
		0xAD, 0x10, 0x10, // $1000 lda $1010
		0x85, 0xFB, //       $1003 sta $fb
		0xAD, 0x11, 0x10, // $1005 lda $1011
		0x85, 0xFC, //       $1008 sta $fc
		0x60,       //       $100A rts
		0xA0, 0x00, //       $100B ldy #$00
		0xB1, 0xFB, //       $100D lda ($fb),y
		0x60,       //       $100F rts
		0x12, 0x10, //       $1010 pointer to $1012
		0x0F,       //       $1012 volume
	}
	file, err := sid.LoadBinary(code, 0x1000, 0x1000, 0x100B)
	assert.NoError(t, err)
	file.Header.Name = "Test Tune"
	return file
}

func testOptions() (options.Program, options.Disassembler) {
	opts := options.Program{}
	opts.Quiet = true
	disasmOpts := config.NewDisassemblerOptions()
	disasmOpts.Frames = 10
	disasmOpts.Generator = "sidreloc test"
	return opts, disasmOpts
}

func TestExecuteWithFileConsoleOutput(t *testing.T) {
	logger := log.NewTestLogger(t)
	file := createTestFile(t)
	opts, disasmOpts := testOptions()
	disasmOpts.Relocate = true
	disasmOpts.RelocationAddress = 0x2000

	var buf bytes.Buffer
	pipe := New(logger)
	assert.NoError(t, pipe.ExecuteWithFile(context.Background(), file, opts, disasmOpts, &buf))

	output := buf.String()
	assert.True(t, strings.Contains(output, "//; Name: Test Tune\n"))
	assert.True(t, strings.Contains(output, ".const SIDLoad = $2000\n"))
	assert.True(t, strings.Contains(output, "    .byte <(DataBlock_0_0+2)\n"))
	assert.True(t, strings.Contains(output, "    .byte >(DataBlock_0_0+2)\n"))
	assert.True(t, strings.Contains(output, "    lda (ZP_0),Y"))
}

func TestExecuteWithFileAsmAndRelocationTable(t *testing.T) {
	logger := log.NewTestLogger(t)
	file := createTestFile(t)
	opts, disasmOpts := testOptions()

	dir := t.TempDir()
	opts.Output = filepath.Join(dir, "tune.asm")
	opts.RelocTable = filepath.Join(dir, "tune.txt")

	pipe := New(logger)
	assert.NoError(t, pipe.ExecuteWithFile(context.Background(), file, opts, disasmOpts, nil))

	asm, err := os.ReadFile(opts.Output)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(asm), ".const SIDLoad = $1000\n"))

	table, err := os.ReadFile(opts.RelocTable)
	assert.NoError(t, err)
	assert.Equal(t, "$1010 -> $1012 (LOW)\n$1011 -> $1012 (HIGH)\n", string(table))
}

func TestRelocatedAddresses(t *testing.T) {
	file, err := sid.LoadBinary([]byte{0x60}, 0x1000, 0x1006, 0x1003)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		relocate bool
		address  uint16
		play     uint16
		wantLoad uint16
		wantInit uint16
		wantPlay uint16
	}{
		{"no relocation", false, 0, 0x1003, 0x1000, 0x1006, 0x1003},
		{"relocate up", true, 0x2000, 0x1003, 0x2000, 0x2006, 0x2003},
		{"relocate down", true, 0x0800, 0x1003, 0x0800, 0x0806, 0x0803},
		{"interrupt driven play", true, 0x2000, 0, 0x2000, 0x2006, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file.Header.PlayAddress = tt.play
			addresses := RelocatedAddresses(file, options.Disassembler{
				Relocate:          tt.relocate,
				RelocationAddress: tt.address,
			})
			assert.Equal(t, tt.wantLoad, addresses.Load)
			assert.Equal(t, tt.wantInit, addresses.Init)
			assert.Equal(t, tt.wantPlay, addresses.Play)
		})
	}
}

func TestSongIndex(t *testing.T) {
	assert.Equal(t, uint8(0), songIndex(sid.Header{}, 0))
	assert.Equal(t, uint8(2), songIndex(sid.Header{StartSong: 3}, 0))
	assert.Equal(t, uint8(1), songIndex(sid.Header{StartSong: 3}, 2))
}
