// Package detector handles input format detection.
package detector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/options"
)

// Format defines the container format of an input file.
type Format string

// supported input formats.
const (
	SID    Format = "sid"
	PRG    Format = "prg"
	Binary Format = "bin"
)

// FormatFromString returns the format for the given name.
func FormatFromString(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case SID, PRG, Binary:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported input format '%s'", s)
	}
}

// Detector handles input format detection from file extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the input format from options or file auto-detection.
// It first checks if a format is explicitly specified in options, otherwise
// attempts to detect the format from the input filename extension.
func (d *Detector) Detect(opts options.Program) Format {
	format, err := FormatFromString(opts.Format)
	if err != nil {
		format = d.detectFromFile(opts.Input)
		d.logger.Debug("Auto-detected format",
			log.String("format", string(format)),
			log.String("file", opts.Input))
	}
	return format
}

// detectFromFile determines the format based on file extension.
func (d *Detector) detectFromFile(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".prg":
		return PRG
	case ".bin", ".raw":
		return Binary
	default:
		// PSID and RSID files are identified by their magic when parsing
		return SID
	}
}
