// Package loader handles music file loading operations.
package loader

import (
	"fmt"
	"os"

	"github.com/retroenv/sidreloc/internal/config"
	"github.com/retroenv/sidreloc/internal/detector"
	"github.com/retroenv/sidreloc/internal/options"
	"github.com/retroenv/sidreloc/internal/sid"
)

// Loader handles loading music files from disk.
type Loader struct{}

// New creates a new music file loader.
func New() *Loader {
	return &Loader{}
}

// Load loads and parses a music file based on the format and applies the
// address and text overrides of the options.
func (l *Loader) Load(opts options.Program, disasmOpts options.Disassembler, format detector.Format) (*sid.File, error) {
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", opts.Input, err)
	}
	return l.LoadFromBytes(data, disasmOpts, format)
}

// LoadFromBytes parses a music file from memory.
func (l *Loader) LoadFromBytes(data []byte, disasmOpts options.Disassembler, format detector.Format) (*sid.File, error) {
	var (
		file *sid.File
		err  error
	)

	switch format {
	case detector.SID:
		file, err = sid.Parse(data)
		if err == nil {
			applyAddressOverrides(file, disasmOpts)
		}
	case detector.PRG:
		file, err = sid.LoadPRG(data, 0, 0)
		if err == nil {
			applyEntryPoints(file, disasmOpts)
		}
	case detector.Binary:
		load := valueOrDefault(disasmOpts.LoadAddress, config.DefaultLoadAddress)
		file, err = sid.LoadBinary(data, load, 0, 0)
		if err == nil {
			applyEntryPoints(file, disasmOpts)
		}
	default:
		return nil, fmt.Errorf("unsupported input format '%s'", format)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s file: %w", format, err)
	}

	applyTextOverrides(file, disasmOpts)
	return file, nil
}

// applyAddressOverrides sets init and play addresses of a parsed file. An init
// address of 0 in a PSID header means the load address.
func applyAddressOverrides(file *sid.File, disasmOpts options.Disassembler) {
	header := &file.Header
	if disasmOpts.InitAddress != 0 {
		header.InitAddress = disasmOpts.InitAddress
	}
	if header.InitAddress == 0 {
		header.InitAddress = file.LoadAddress()
	}
	if disasmOpts.PlayAddress != 0 {
		header.PlayAddress = disasmOpts.PlayAddress
	}
}

// applyEntryPoints sets init and play addresses of files without a header.
// Unless overridden they are expected at the same distance to the load
// address as the common default layout.
func applyEntryPoints(file *sid.File, disasmOpts options.Disassembler) {
	load := file.LoadAddress()
	file.Header.InitAddress = valueOrDefault(disasmOpts.InitAddress,
		load+(config.DefaultInitAddress-config.DefaultLoadAddress))
	file.Header.PlayAddress = valueOrDefault(disasmOpts.PlayAddress,
		load+(config.DefaultPlayAddress-config.DefaultLoadAddress))
}

func applyTextOverrides(file *sid.File, disasmOpts options.Disassembler) {
	header := &file.Header
	if disasmOpts.Title != "" {
		header.Name = disasmOpts.Title
	}
	if disasmOpts.Author != "" {
		header.Author = disasmOpts.Author
	}
	if disasmOpts.Copyright != "" {
		header.Released = disasmOpts.Copyright
	}
}

func valueOrDefault(value, def uint16) uint16 {
	if value == 0 {
		return def
	}
	return value
}
