package disasm

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/formatter"
	"github.com/retroenv/sidreloc/internal/labels"
)

const (
	commentColumn = 96
	headerLine    = "//; ------------------------------------------\n"
)

// GenerateAsm writes the KickAssembler source of the analyzed tune and
// returns the number of data bytes that were output as zero because they
// were never accessed. The hardware and zero page symbols that it outputs
// are registered on the label generator, repeated calls replace them.
func (dis *Disasm) GenerateAsm(w io.Writer, addresses Addresses) (int, error) {
	if passes := dis.tracker.Propagate(); passes > 1 {
		dis.labels.ApplySubdivisions()
	}

	dis.logger.Debug("Generating assembly",
		log.Hex("load", addresses.Load),
		log.Hex("init", addresses.Init),
		log.Hex("play", addresses.Play))

	b := &bytes.Buffer{}
	dis.writeHeader(b)
	fmt.Fprintf(b, ".const SIDLoad = $%04X\n", addresses.Load)
	dis.writeHardwareConstants(b)
	dis.writeZeroPageConstants(b)

	unused, err := dis.writeCode(b)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(b, "//; %d unused bytes zeroed out\n\n", unused)

	if _, err := w.Write(b.Bytes()); err != nil {
		return 0, fmt.Errorf("writing assembly: %w", err)
	}
	return unused, nil
}

// GenerateAsmFile writes the assembly to the given file. The file is only
// replaced once the output was generated completely.
func (dis *Disasm) GenerateAsmFile(fileName string, addresses Addresses) (int, error) {
	dis.logger.Info("Generating assembly file", log.String("file", fileName))

	b := &bytes.Buffer{}
	unused, err := dis.GenerateAsm(b, addresses)
	if err != nil {
		return 0, err
	}
	if err := atomicwriter.WriteFile(fileName, b.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("writing file '%s': %w", fileName, err)
	}
	return unused, nil
}

func (dis *Disasm) writeHeader(b *bytes.Buffer) {
	header := dis.file.Header
	b.WriteString(headerLine)
	fmt.Fprintf(b, "//; Generated by %s\n", dis.options.Version)
	b.WriteString("//; \n")
	fmt.Fprintf(b, "//; Name: %s\n", header.Name)
	fmt.Fprintf(b, "//; Author: %s\n", header.Author)
	fmt.Fprintf(b, "//; Copyright: %s\n", header.Released)
	b.WriteString(headerLine)
	b.WriteString("\n")
}

// sidBases returns the 32 byte aligned bases of all accessed SID register
// blocks in ascending order. The default SID is returned if none was accessed.
func (dis *Disasm) sidBases() []uint16 {
	var bases []uint16
	for addr := labels.SIDWindowStart; addr <= labels.SIDWindowEnd; addr++ {
		if !dis.analyzer.TypeAt(uint16(addr)).HasAccessed() {
			continue
		}
		base := uint16(addr) & labels.SIDBlockMask
		if len(bases) == 0 || bases[len(bases)-1] != base {
			bases = append(bases, base)
		}
	}

	if len(bases) == 0 {
		bases = append(bases, labels.SIDWindowStart)
	}
	return bases
}

func (dis *Disasm) writeHardwareConstants(b *bytes.Buffer) {
	for i, base := range dis.sidBases() {
		name := fmt.Sprintf("SID%d", i)
		dis.labels.RegisterHardwareBase(labels.HardwareBase{
			Kind:    labels.SID,
			Address: base,
			Index:   i,
			Name:    name,
		})
		fmt.Fprintf(b, ".const %s = $%04X\n", name, base)
	}
	b.WriteString("\n")
}

// zeroPageAddresses returns all accessed zero page addresses in ascending order.
func (dis *Disasm) zeroPageAddresses() []uint8 {
	var addresses []uint8
	for addr := range 0x100 {
		if dis.analyzer.TypeAt(uint16(addr)).HasAccessed() {
			addresses = append(addresses, uint8(addr))
		}
	}
	return addresses
}

// writeZeroPageConstants packs all used zero page addresses at the top of the
// zero page and names them ZP_<n>.
func (dis *Disasm) writeZeroPageConstants(b *bytes.Buffer) {
	addresses := dis.zeroPageAddresses()
	if len(addresses) == 0 {
		return
	}

	base := uint8(0x100 - len(addresses))
	fmt.Fprintf(b, ".const ZP_BASE = $%02X\n", base)
	for i, addr := range addresses {
		name := fmt.Sprintf("ZP_%d", i)
		fmt.Fprintf(b, ".const %s = ZP_BASE + %d // $%02X\n", name, i, addr)
		dis.labels.RegisterZeroPageVariable(addr, name)
	}
	b.WriteString("\n")
}

func (dis *Disasm) writeCode(b *bytes.Buffer) (int, error) {
	image := dis.file.Image
	end := image.End()
	f := formatter.New(dis.cpu.Memory(), dis.labels, dis.cpu, formatter.Options{
		ZeroUnused: dis.options.ZeroUnused,
	})
	pointers := dis.pointerBytes()

	b.WriteString("\n* = SIDLoad\n\n")

	unused := 0
	pc := image.Base()
	for addr := int(pc); addr < end; addr = int(pc) {
		typ := dis.analyzer.TypeAt(pc)

		switch {
		case typ.HasCode():
			if label, ok := dis.labels.LabelAt(pc); ok {
				fmt.Fprintf(b, "%s:\n", label)
			}
			start := pc
			line := f.FormatInstruction(&pc)
			fmt.Fprintf(b, "%s //; $%04X - %04X\n", padToColumn(line, commentColumn), start, pc-1)
			if pc < start {
				return unused, nil // instruction wrapped around the address space
			}

		case typ.HasData():
			n, err := f.FormatDataRun(b, &pc, image.Bytes(), image.Base(), end, pointers, dis.analyzer)
			if err != nil {
				return unused, fmt.Errorf("formatting data at $%04X: %w", addr, err)
			}
			unused += n
			if pc == 0 {
				return unused, nil
			}

		default:
			pc++
			if pc == 0 {
				return unused, nil
			}
		}
	}
	return unused, nil
}

func padToColumn(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
