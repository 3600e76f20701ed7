// Package verification verifies that the generated output file recreates the input.
package verification

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/assembler/kickass"
	"github.com/retroenv/sidreloc/internal/options"
	"github.com/retroenv/sidreloc/internal/sid"
)

const maxLoggedMismatches = 10

// VerifyOutput assembles the generated source file and verifies that the
// resulting program recreates the music data of the input file.
func VerifyOutput(ctx context.Context, logger *log.Logger, opts options.Program,
	disasmOpts options.Disassembler, image *sid.Image) error {

	if opts.Output == "" {
		return errors.New("can not verify console output")
	}
	if disasmOpts.Relocate && disasmOpts.RelocationAddress != image.Base() {
		return errors.New("can not verify relocated output")
	}

	outputFile, err := os.CreateTemp("", "sidreloc.*.prg")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	_ = outputFile.Close()
	defer func() {
		_ = os.Remove(outputFile.Name())
	}()

	if err := kickass.AssembleUsingExternalApp(ctx, disasmOpts.KickAss, opts.Output, outputFile.Name()); err != nil {
		return fmt.Errorf("reassembling .prg file using KickAssembler failed: %w", err)
	}

	prg, err := os.ReadFile(outputFile.Name())
	if err != nil {
		return fmt.Errorf("reading destination file for comparison: %w", err)
	}

	return compareProgram(logger, image, prg)
}

func compareProgram(logger *log.Logger, image *sid.Image, prg []byte) error {
	if len(prg) < 2 {
		return fmt.Errorf("assembled program is too small: %d bytes", len(prg))
	}

	load := binary.LittleEndian.Uint16(prg)
	if load != image.Base() {
		return fmt.Errorf("load address mismatch, expected $%04X but got $%04X", image.Base(), load)
	}

	if err := checkBufferEqual(logger, image.Bytes(), prg[2:]); err != nil {
		return fmt.Errorf("music data mismatch: %w", err)
	}
	return nil
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("mismatched lengths, %d != %d", len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs <= maxLoggedMismatches {
			logger.Error("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d offset mismatches", diffs)
}
