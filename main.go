// Package main implements the main entry point for the SID tune relocator
package main

import (
	"context"
	"errors"
	"os"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/cli"
	"github.com/retroenv/sidreloc/internal/config"
	"github.com/retroenv/sidreloc/internal/fileprocessor"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, disasmOptions, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, opts, version, commit, date)
			usageErr.ShowUsage()
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)
	disasmOptions.Generator = "sidreloc " + fileprocessor.VersionString(version, commit)

	files, err := fileprocessor.GetFilesToProcess(&opts)
	if err != nil {
		logger.Fatal(err.Error())
	}

	if opts.Batch != "" {
		failed, err := fileprocessor.ProcessBatch(ctx, logger, opts, disasmOptions, files)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("Operation cancelled")
				return
			}
			logger.Fatal(err.Error())
		}
		if failed > 0 {
			logger.Error("Batch finished with errors", log.Int("failed", failed), log.Int("total", len(files)))
			os.Exit(1)
		}
		return
	}

	opts.Input = files[0]
	if err := fileprocessor.ProcessFile(ctx, logger, opts, disasmOptions); err != nil {
		// Handle context cancellation (Ctrl+C) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
			return
		}
		logger.Error("Relocation failed", log.Err(err))
		os.Exit(1)
	}
}
