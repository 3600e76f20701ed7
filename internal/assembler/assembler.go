// Package assembler defines the supported output formats.
package assembler

import (
	"path/filepath"
	"strings"
)

// KickAss is the name of the supported assembler.
const KickAss = "kickass"

// Output defines what gets built from the generated source.
type Output int

// output kinds.
const (
	Source  Output = iota // assembly source only
	Program               // assembled C64 program with load address
	SID                   // assembled program wrapped in a PSID container
)

func (o Output) String() string {
	switch o {
	case Program:
		return "prg"
	case SID:
		return "sid"
	default:
		return "asm"
	}
}

// OutputForFile returns the output kind based on the extension of the file name.
func OutputForFile(fileName string) Output {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".prg":
		return Program
	case ".sid":
		return SID
	default:
		return Source
	}
}
