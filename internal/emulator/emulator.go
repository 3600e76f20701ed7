// Package emulator drives the init and play routines of a tune on the trace engine.
package emulator

import (
	"context"
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidreloc/internal/cpu"
)

// preAnalysisFrames is the number of frames that are played before the
// tune gets initialized again, to catch memory copies of the init routine.
const preAnalysisFrames = 100

// Options of the emulation.
type Options struct {
	Init          uint16
	Play          uint16
	Song          uint8 // zero based song number passed in the accumulator to init
	Frames        int
	CallsPerFrame int
}

// Result contains statistics of an emulation run.
type Result struct {
	Frames int    // number of completely played frames
	Steps  uint64 // executed instructions
	Stopped error // error that ended the emulation early
}

// Emulator executes a tune.
type Emulator struct {
	logger  *log.Logger
	cpu     *cpu.CPU
	options Options
}

// New returns a new emulator for the given CPU, the tune has to be loaded
// into the CPU memory already.
func New(logger *log.Logger, c *cpu.CPU, options Options) *Emulator {
	if options.CallsPerFrame < 1 {
		options.CallsPerFrame = 1
	}
	return &Emulator{
		logger:  logger,
		cpu:     c,
		options: options,
	}
}

// Run executes the init routine, a short pre analysis playback, the init
// routine again and the configured number of frames. Memory is restored to
// its content before the run afterwards, access tracking is kept.
// Execution errors end the emulation early but do not fail it, as the
// trace collected so far is still usable.
func (e *Emulator) Run(ctx context.Context) (Result, error) {
	snapshot := e.cpu.Snapshot()
	defer e.cpu.Restore(snapshot)

	e.logger.Debug("Running emulation",
		log.Hex("init", e.options.Init),
		log.Hex("play", e.options.Play),
		log.Int("frames", e.options.Frames))

	var result Result
	if err := e.init(); err != nil {
		return e.stop(result, err)
	}

	for range preAnalysisFrames {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("emulation canceled: %w", err)
		}
		if err := e.frame(); err != nil {
			return e.stop(result, err)
		}
	}

	if err := e.init(); err != nil {
		return e.stop(result, err)
	}

	for range e.options.Frames {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("emulation canceled: %w", err)
		}
		if err := e.frame(); err != nil {
			return e.stop(result, err)
		}
		result.Frames++
	}

	result.Steps = e.cpu.Steps()
	e.logger.Debug("Emulation complete",
		log.Int("frames", result.Frames),
		log.Int("steps", int(result.Steps)))
	return result, nil
}

func (e *Emulator) init() error {
	e.cpu.ResetRegisters()
	e.cpu.A = e.options.Song
	if err := e.call(e.options.Init); err != nil {
		return fmt.Errorf("calling init $%04X: %w", e.options.Init, err)
	}
	return nil
}

// frame calls the play routine. A play address of 0 means that the tune
// installed its own interrupt handler in init, which is not emulated.
func (e *Emulator) frame() error {
	if e.options.Play == 0 {
		return nil
	}
	for range e.options.CallsPerFrame {
		e.cpu.ResetRegisters()
		if err := e.call(e.options.Play); err != nil {
			return fmt.Errorf("calling play $%04X: %w", e.options.Play, err)
		}
	}
	return nil
}

// call executes a routine. Exceeding the step limit is only logged, the
// routine might be waiting for a hardware state that is not emulated.
func (e *Emulator) call(address uint16) error {
	err := e.cpu.Call(address)
	if errors.Is(err, cpu.ErrStepLimit) {
		e.logger.Warn("Routine did not return", log.Hex("address", address))
		return nil
	}
	return err
}

func (e *Emulator) stop(result Result, err error) (Result, error) {
	e.logger.Warn("Emulation stopped early", log.Err(err))
	result.Steps = e.cpu.Steps()
	result.Stopped = err
	return result, nil
}
