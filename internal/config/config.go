// Package config handles application configuration and setup
package config

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/assembler/kickass"
	"github.com/retroenv/sidreloc/internal/options"
)

// Default values for options that are not set on the command line.
const (
	DefaultFrames        = 30000
	DefaultCallsPerFrame = 1

	// used for inputs that do not contain the addresses
	DefaultLoadAddress = 0x1000
	DefaultInitAddress = 0x1000
	DefaultPlayAddress = 0x1003
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// NewDisassemblerOptions returns disassembler options with all defaults set.
func NewDisassemblerOptions() options.Disassembler {
	return options.Disassembler{
		Frames:        DefaultFrames,
		CallsPerFrame: DefaultCallsPerFrame,
		KickAss:       kickass.DefaultCommand,
	}
}
