// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/options"
	"github.com/retroenv/sidreloc/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

// ProcessFile handles the complete file processing workflow
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program, disasmOptions options.Disassembler) error {
	pipe := pipeline.New(logger)
	if err := pipe.Execute(ctx, opts, disasmOptions, os.Stdout); err != nil {
		return fmt.Errorf("processing '%s': %w", opts.Input, err)
	}
	return nil
}

// ProcessBatch processes all given files concurrently. Every file is written
// to its own output file named after the input. A failing file is logged and
// does not stop the others, only a cancellation aborts the batch.
func ProcessBatch(ctx context.Context, logger *log.Logger, opts options.Program,
	disasmOptions options.Disassembler, files []string) (int, error) {

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	failed := make([]bool, len(files))
	for i, file := range files {
		fileOpts := opts
		fileOpts.Input = file
		fileOpts.Output = GenerateOutputFilename(file, opts.Output)

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := ProcessFile(ctx, logger, fileOpts, disasmOptions)
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("Relocation failed", log.String("file", file), log.Err(err))
			failed[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("processing batch: %w", err)
	}

	var count int
	for _, f := range failed {
		if f {
			count++
		}
	}
	return count, nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match batch pattern '%s'", opts.Batch)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates output filename for a given input file
// that keeps the extension of the given output name, .asm by default.
func GenerateOutputFilename(inputFile, output string) string {
	outputExt := ".asm"
	if output != "" {
		if ext := filepath.Ext(output); ext != "" {
			outputExt = ext
		}
	}

	ext := filepath.Ext(inputFile)
	name := inputFile[:len(inputFile)-len(ext)]
	if strings.EqualFold(ext, outputExt) {
		name += "-relocated"
	}
	return name + outputExt
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	logger.Info("sidreloc", log.String("version", VersionString(version, commit)))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}

// VersionString returns the version with the short commit hash if known.
func VersionString(version, commit string) string {
	if commit == "" {
		return version
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", version, commit)
}
