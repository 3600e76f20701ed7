// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/sidreloc/internal/assembler"
	"github.com/retroenv/sidreloc/internal/config"
	"github.com/retroenv/sidreloc/internal/detector"
	"github.com/retroenv/sidreloc/internal/options"
)

// addressFlags contains the address options in their command line form.
type addressFlags struct {
	relocate string
	load     string
	init     string
	play     string
}

// ParseFlags parses command line flags and returns program and disassembler options
func ParseFlags() (options.Program, options.Disassembler, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	disasmOptions := config.NewDisassemblerOptions()
	var addresses addressFlags
	readDisasmOptionFlags(flags, &disasmOptions, &addresses)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Batch == "") {
		return opts, options.Disassembler{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Disassembler{}, err
	}

	if opts.Batch == "" {
		opts.Input = args[0]
	}

	if err := applyAddresses(addresses, &disasmOptions); err != nil {
		return opts, options.Disassembler{}, err
	}

	if err := validateOptionCombinations(opts, disasmOptions); err != nil {
		return opts, options.Disassembler{}, err
	}

	return opts, disasmOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: sidreloc [options] <file to relocate>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to relocate, please pass the file to relocate as last argument", arg),
			}
		}
	}
	return nil
}

// validateOptionCombinations checks for options that can not be used together.
func validateOptionCombinations(opts options.Program, disasmOpts options.Disassembler) error {
	if opts.Format != "" {
		if _, err := detector.FormatFromString(opts.Format); err != nil {
			return err
		}
	}

	if disasmOpts.Frames < 0 {
		return fmt.Errorf("invalid number of frames %d", disasmOpts.Frames)
	}
	if disasmOpts.CallsPerFrame < 1 {
		return fmt.Errorf("invalid number of calls per frame %d", disasmOpts.CallsPerFrame)
	}

	if !opts.AssembleTest {
		return nil
	}
	if disasmOpts.Relocate {
		return errors.New("verify can not be combined with relocate, the relocated output differs from the input")
	}
	if opts.Output != "" && assembler.OutputForFile(opts.Output) != assembler.Source {
		return errors.New("verify requires an .asm output file")
	}
	return nil
}

// applyAddresses parses the address flags into the disassembler options.
func applyAddresses(addresses addressFlags, opts *options.Disassembler) error {
	fields := []struct {
		name  string
		value string
		dst   *uint16
	}{
		{"relocate", addresses.relocate, &opts.RelocationAddress},
		{"load", addresses.load, &opts.LoadAddress},
		{"init", addresses.init, &opts.InitAddress},
		{"play", addresses.play, &opts.PlayAddress},
	}

	for _, field := range fields {
		if field.value == "" {
			continue
		}
		address, err := ParseAddress(field.value)
		if err != nil {
			return fmt.Errorf("invalid %s address: %w", field.name, err)
		}
		*field.dst = address
	}

	opts.Relocate = addresses.relocate != ""
	return nil
}

// ParseAddress parses a hexadecimal address with an optional $ or 0x prefix.
func ParseAddress(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	}

	value, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("parsing '%s': %w", s, err)
	}
	return uint16(value), nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Output, "o", "", "name of the output file, .asm writes the source, .prg and .sid assemble it using KickAssembler, printed on console if no name given")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically .asm file naming, for example *.sid")
	flags.StringVar(&opts.RelocTable, "reloctable", "", "name of the file to write the detected relocation bytes to")
	flags.StringVar(&opts.Format, "format", "", "input format (sid/prg/bin) - if not auto-detected from file extension")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&opts.AssembleTest, "verify", false, "verify the generated output by assembling with KickAssembler and check if it matches the input")
}

func readDisasmOptionFlags(flags *flag.FlagSet, opts *options.Disassembler, addresses *addressFlags) {
	flags.StringVar(&addresses.relocate, "relocate", "", "new load address of the tune, for example $2000")
	flags.StringVar(&addresses.load, "load", "", "load address for .bin input files")
	flags.StringVar(&addresses.init, "init", "", "override the init address")
	flags.StringVar(&addresses.play, "play", "", "override the play address")
	flags.StringVar(&opts.Title, "title", "", "override the title of the output SID file")
	flags.StringVar(&opts.Author, "author", "", "override the author of the output SID file")
	flags.StringVar(&opts.Copyright, "copyright", "", "override the copyright of the output SID file")
	flags.StringVar(&opts.KickAss, "kickass", opts.KickAss, "command to run KickAssembler")
	flags.IntVar(&opts.Frames, "frames", opts.Frames, "number of frames to emulate for the analysis")
	flags.IntVar(&opts.CallsPerFrame, "calls", opts.CallsPerFrame, "number of play routine calls per frame")
	flags.BoolVar(&opts.ZeroUnused, "zero-unused", false, "output data bytes that were never accessed as zero")

	flags.Func("song", "song number to initialize (default: start song of the file)", func(s string) error {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return fmt.Errorf("parsing song number: %w", err)
		}
		opts.Song = uint16(n)
		return nil
	})
}
