// Package disasm turns the execution trace of a SID player into relocatable
// KickAssembler source.
package disasm

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/cpu"
	"github.com/retroenv/sidreloc/internal/formatter"
	"github.com/retroenv/sidreloc/internal/labels"
	"github.com/retroenv/sidreloc/internal/memory"
	"github.com/retroenv/sidreloc/internal/relocation"
	"github.com/retroenv/sidreloc/internal/sid"
)

// Options of the disassembler.
type Options struct {
	Version    string // program name and version written to the output header
	ZeroUnused bool   // output data bytes that were never accessed as zero
}

// Addresses are the addresses of the relocated tune.
type Addresses struct {
	Load uint16
	Init uint16
	Play uint16
}

// Disasm implements the analysis and output generation for a single tune.
// The CPU passed to New has to be used to execute the tune before Analyze
// is called.
type Disasm struct {
	logger  *log.Logger
	options Options

	file *sid.File
	cpu  *cpu.CPU

	analyzer *memory.Analyzer
	labels   *labels.Generator
	tracker  *relocation.Tracker
}

// New creates a new disassembler and registers the trace hooks on the CPU.
func New(logger *log.Logger, file *sid.File, c *cpu.CPU, options Options) *Disasm {
	image := file.Image
	analyzer := memory.NewAnalyzer(logger, c, image.Base(), image.End())
	generator := labels.New(logger, analyzer, image.Base(), image.End())
	tracker := relocation.NewTracker(logger, c, image, generator)

	c.SetIndirectAccessHandler(tracker.AddIndirectAccess)
	c.SetRelocationHandler(tracker.AddOperandRelocation)

	return &Disasm{
		logger:   logger,
		options:  options,
		file:     file,
		cpu:      c,
		analyzer: analyzer,
		labels:   generator,
		tracker:  tracker,
	}
}

// Analyze classifies the memory, resolves the recorded indirect accesses to
// relocation bytes and creates the labels.
func (dis *Disasm) Analyze() {
	dis.analyzer.Analyze()
	dis.tracker.ProcessIndirectAccesses()
	dis.labels.Generate()
	dis.labels.ApplySubdivisions()

	dis.logger.Debug("Analysis complete",
		log.Int("indirect_accesses", len(dis.tracker.IndirectAccesses())),
		log.Int("relocation_bytes", dis.tracker.Table().Len()),
		log.Int("data_blocks", len(dis.labels.DataBlocks())))
}

// RelocationTable returns the relocation bytes that were found.
func (dis *Disasm) RelocationTable() *relocation.Table {
	return dis.tracker.Table()
}

// Labels returns the label generator.
func (dis *Disasm) Labels() *labels.Generator {
	return dis.labels
}

// TypeAt returns the memory type of an address, it is valid after Analyze.
func (dis *Disasm) TypeAt(address uint16) memory.Type {
	return dis.analyzer.TypeAt(address)
}

func (dis *Disasm) pointerBytes() map[uint16]formatter.PointerByte {
	table := dis.tracker.Table()
	pointers := make(map[uint16]formatter.PointerByte, table.Len())
	for _, addr := range table.Addresses() {
		entry, _ := table.Get(addr)
		pointers[addr] = formatter.PointerByte{
			Target: entry.EffectiveAddress,
			High:   entry.Half == relocation.High,
		}
	}
	return pointers
}
