// Package kickass provides helpers to assemble the generated output using KickAssembler.
package kickass

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommand is the command used to run KickAssembler.
const DefaultCommand = "java -jar KickAss.jar"

var errNoCommand = errors.New("no assembler command configured")

// AssembleUsingExternalApp calls KickAssembler to assemble the given asm
// file into a .prg file. The command can contain arguments that are passed
// before the file names, for example "java -jar KickAss.jar".
func AssembleUsingExternalApp(ctx context.Context, command, asmFile, outputFile string) error {
	args := strings.Fields(command)
	if len(args) == 0 {
		return errNoCommand
	}

	name := args[0]
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s is not installed", name)
	}

	args = append(args[1:], asmFile, "-o", outputFile)
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("assembling file: %s: %w", strings.TrimSpace(string(out)), err)
	}

	return nil
}
