// Package pipeline orchestrates the relocation workflow stages.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/moby/sys/atomicwriter"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/assembler"
	"github.com/retroenv/sidreloc/internal/assembler/kickass"
	"github.com/retroenv/sidreloc/internal/cpu"
	"github.com/retroenv/sidreloc/internal/detector"
	"github.com/retroenv/sidreloc/internal/disasm"
	"github.com/retroenv/sidreloc/internal/emulator"
	"github.com/retroenv/sidreloc/internal/loader"
	"github.com/retroenv/sidreloc/internal/options"
	"github.com/retroenv/sidreloc/internal/sid"
	"github.com/retroenv/sidreloc/internal/verification"
)

// Pipeline orchestrates the complete relocation workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new relocation pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(),
	}
}

// Execute runs the complete pipeline for the input file of the options.
// Assembly output is written to console if no output file is set.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, disasmOpts options.Disassembler, console io.Writer) error {
	format := p.detector.Detect(opts)

	file, err := p.loader.Load(opts, disasmOpts, format)
	if err != nil {
		return fmt.Errorf("loading file: %w", err)
	}

	return p.ExecuteWithFile(ctx, file, opts, disasmOpts, console)
}

// ExecuteWithFile runs the pipeline with a pre-loaded music file.
// This is useful for testing and programmatic usage where the file is already in memory.
func (p *Pipeline) ExecuteWithFile(ctx context.Context, file *sid.File, opts options.Program,
	disasmOpts options.Disassembler, console io.Writer) error {

	p.printInfo(opts, file)

	dis, err := p.Analyze(ctx, file, disasmOpts)
	if err != nil {
		return err
	}

	addresses := RelocatedAddresses(file, disasmOpts)

	if err := p.writeOutput(ctx, dis, file, opts, disasmOpts, addresses, console); err != nil {
		return err
	}

	// propagation runs as part of the output generation
	if opts.RelocTable != "" {
		if err := writeRelocationTable(opts.RelocTable, dis); err != nil {
			return err
		}
	}

	if opts.AssembleTest {
		if err := verification.VerifyOutput(ctx, p.logger, opts, disasmOpts, file.Image); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}
	return nil
}

// Analyze executes the tune and analyzes the collected trace.
func (p *Pipeline) Analyze(ctx context.Context, file *sid.File, disasmOpts options.Disassembler) (*disasm.Disasm, error) {
	c := cpu.New(p.logger)
	c.Load(file.LoadAddress(), file.Image.Bytes())

	dis := disasm.New(p.logger, file, c, disasm.Options{
		Version:    disasmOpts.Generator,
		ZeroUnused: disasmOpts.ZeroUnused,
	})

	emu := emulator.New(p.logger, c, emulator.Options{
		Init:          file.Header.InitAddress,
		Play:          file.Header.PlayAddress,
		Song:          songIndex(file.Header, disasmOpts.Song),
		Frames:        disasmOpts.Frames,
		CallsPerFrame: disasmOpts.CallsPerFrame,
	})

	result, err := emu.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("emulating tune: %w", err)
	}
	p.logger.Debug("Emulation finished",
		log.Int("frames", result.Frames),
		log.Int("instructions", int(result.Steps)))

	dis.Analyze()
	return dis, nil
}

// RelocatedAddresses returns the addresses of the tune after relocation.
// Init and play keep their distance to the load address.
func RelocatedAddresses(file *sid.File, disasmOpts options.Disassembler) disasm.Addresses {
	load := file.LoadAddress()
	addresses := disasm.Addresses{
		Load: load,
		Init: file.Header.InitAddress,
		Play: file.Header.PlayAddress,
	}
	if !disasmOpts.Relocate {
		return addresses
	}

	delta := disasmOpts.RelocationAddress - load
	addresses.Load = disasmOpts.RelocationAddress
	addresses.Init += delta
	if addresses.Play != 0 {
		addresses.Play += delta
	}
	return addresses
}

// songIndex returns the zero based song number that is passed to init.
func songIndex(header sid.Header, song uint16) uint8 {
	if song == 0 {
		song = header.StartSong
	}
	if song == 0 {
		return 0
	}
	return uint8(song - 1)
}

func (p *Pipeline) writeOutput(ctx context.Context, dis *disasm.Disasm, file *sid.File, opts options.Program,
	disasmOpts options.Disassembler, addresses disasm.Addresses, console io.Writer) error {

	if opts.Output == "" {
		if _, err := dis.GenerateAsm(console, addresses); err != nil {
			return fmt.Errorf("writing assembly: %w", err)
		}
		return nil
	}

	output := assembler.OutputForFile(opts.Output)
	if output == assembler.Source {
		unused, err := dis.GenerateAsmFile(opts.Output, addresses)
		if err != nil {
			return fmt.Errorf("writing assembly: %w", err)
		}
		p.logger.Debug("Wrote assembly", log.Int("unused_bytes", unused))
		return nil
	}

	data, err := p.build(ctx, dis, file, disasmOpts, addresses, output)
	if err != nil {
		return err
	}
	if err := atomicwriter.WriteFile(opts.Output, data, 0o644); err != nil {
		return fmt.Errorf("writing file '%s': %w", opts.Output, err)
	}

	p.logger.Info("Wrote relocated tune",
		log.String("file", opts.Output),
		log.Hex("load", addresses.Load),
		log.String("size", humanize.Bytes(uint64(len(data)))))
	return nil
}

// build assembles the generated source in a temporary directory and returns
// the program or SID file content.
func (p *Pipeline) build(ctx context.Context, dis *disasm.Disasm, file *sid.File,
	disasmOpts options.Disassembler, addresses disasm.Addresses, output assembler.Output) ([]byte, error) {

	dir, err := os.MkdirTemp("", "sidreloc")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	asmFile := filepath.Join(dir, "tune.asm")
	prgFile := filepath.Join(dir, "tune.prg")

	if _, err := dis.GenerateAsmFile(asmFile, addresses); err != nil {
		return nil, fmt.Errorf("writing assembly: %w", err)
	}
	if err := kickass.AssembleUsingExternalApp(ctx, disasmOpts.KickAss, asmFile, prgFile); err != nil {
		return nil, fmt.Errorf("assembling relocated tune: %w", err)
	}

	prg, err := os.ReadFile(prgFile)
	if err != nil {
		return nil, fmt.Errorf("reading assembled program: %w", err)
	}
	if output == assembler.Program {
		return prg, nil
	}

	data, err := sid.Encode(file.Header, prg, addresses.Init, addresses.Play)
	if err != nil {
		return nil, fmt.Errorf("encoding sid file: %w", err)
	}
	return data, nil
}

func writeRelocationTable(fileName string, dis *disasm.Disasm) error {
	w, err := atomicwriter.New(fileName, 0o644)
	if err != nil {
		return fmt.Errorf("creating file '%s': %w", fileName, err)
	}
	if err := dis.RelocationTable().Dump(w); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing relocation table: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing file '%s': %w", fileName, err)
	}
	return nil
}

// printInfo prints information about the tune being processed.
func (p *Pipeline) printInfo(opts options.Program, file *sid.File) {
	if opts.Quiet {
		return
	}

	header := file.Header
	p.logger.Info("Processing tune",
		log.String("file", opts.Input),
		log.String("name", header.Name),
		log.String("author", header.Author),
		log.Hex("load", file.LoadAddress()),
		log.String("size", humanize.Bytes(uint64(file.Image.Len()))),
	)
	if header.IsRSID() {
		p.logger.Warn("RSID tunes expect a real C64 environment, interrupt driven playback is not emulated")
	}
}
