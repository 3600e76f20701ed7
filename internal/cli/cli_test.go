package cli

import (
	"os"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/sidreloc/internal/config"
	"github.com/retroenv/sidreloc/internal/options"
)

func TestParseFlags_DisasmOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options.Disassembler
	}{
		{
			name: "default flags",
			args: []string{"prog", "test.sid"},
			want: config.NewDisassemblerOptions(),
		},
		{
			name: "relocate flag",
			args: []string{"prog", "-relocate", "$2000", "test.sid"},
			want: func() options.Disassembler {
				o := config.NewDisassemblerOptions()
				o.Relocate = true
				o.RelocationAddress = 0x2000
				return o
			}(),
		},
		{
			name: "address overrides",
			args: []string{"prog", "-load", "0xC000", "-init", "c000", "-play", "$C003", "test.bin"},
			want: func() options.Disassembler {
				o := config.NewDisassemblerOptions()
				o.LoadAddress = 0xC000
				o.InitAddress = 0xC000
				o.PlayAddress = 0xC003
				return o
			}(),
		},
		{
			name: "emulation flags",
			args: []string{"prog", "-frames", "100", "-calls", "4", "-song", "3", "-zero-unused", "test.sid"},
			want: func() options.Disassembler {
				o := config.NewDisassemblerOptions()
				o.Frames = 100
				o.CallsPerFrame = 4
				o.Song = 3
				o.ZeroUnused = true
				return o
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			t.Cleanup(func() { os.Args = oldArgs })

			os.Args = tt.args

			_, got, err := ParseFlags()
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags_InvalidAddress(t *testing.T) {
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })

	os.Args = []string{"prog", "-relocate", "$12345", "test.sid"}
	_, _, err := ParseFlags()
	assert.ErrorContains(t, err, "invalid relocate address")
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input   string
		want    uint16
		wantErr bool
	}{
		{"$1000", 0x1000, false},
		{"0x2000", 0x2000, false},
		{"0XFFFF", 0xFFFF, false},
		{"c000", 0xC000, false},
		{" $0801 ", 0x0801, false},
		{"$10000", 0, true},
		{"$xyz", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateOptionCombinations(t *testing.T) {
	defaults := config.NewDisassemblerOptions()

	tests := []struct {
		name        string
		opts        options.Program
		disasmOpts  options.Disassembler
		expectError bool
	}{
		{
			name:        "no conflict",
			opts:        options.Program{},
			disasmOpts:  defaults,
			expectError: false,
		},
		{
			name: "verify only",
			opts: options.Program{
				Flags: options.Flags{AssembleTest: true},
			},
			disasmOpts:  defaults,
			expectError: false,
		},
		{
			name: "verify with relocation",
			opts: options.Program{
				Flags: options.Flags{AssembleTest: true},
			},
			disasmOpts: func() options.Disassembler {
				o := defaults
				o.Relocate = true
				return o
			}(),
			expectError: true,
		},
		{
			name: "verify with sid output",
			opts: options.Program{
				Parameters: options.Parameters{Output: "out.sid"},
				Flags:      options.Flags{AssembleTest: true},
			},
			disasmOpts:  defaults,
			expectError: true,
		},
		{
			name: "unknown format",
			opts: options.Program{
				Flags: options.Flags{Format: "nes"},
			},
			disasmOpts:  defaults,
			expectError: true,
		},
		{
			name: "no calls per frame",
			opts: options.Program{},
			disasmOpts: func() options.Disassembler {
				o := defaults
				o.CallsPerFrame = 0
				return o
			}(),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOptionCombinations(tt.opts, tt.disasmOpts)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
