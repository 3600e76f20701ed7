package kickass

import (
	"context"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestAssembleUsingExternalApp(t *testing.T) {
	tests := []struct {
		name    string
		command string
		errText string
	}{
		{"empty command", "  ", "no assembler command"},
		{"missing tool", "sidreloc-missing-assembler -jar KickAss.jar", "sidreloc-missing-assembler is not installed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssembleUsingExternalApp(context.Background(), tt.command, "in.asm", "out.prg")
			assert.ErrorContains(t, err, tt.errText)
		})
	}

	err := AssembleUsingExternalApp(context.Background(), "", "in.asm", "out.prg")
	assert.True(t, errors.Is(err, errNoCommand))
}
