package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		format func(string) string
		name   string
		icon   string
	}{
		{name: "success", format: FormatSuccess, icon: SuccessIcon},
		{name: "error", format: FormatError, icon: ErrorIcon},
		{name: "warning", format: FormatWarning, icon: WarningIcon},
		{name: "info", format: FormatInfo, icon: InfoIcon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("rules saved")
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "rules saved")
		})
	}
}

func TestFormatTitleAndPrompt(t *testing.T) {
	assert.Contains(t, FormatTitle("Account rules"), "Account rules")
	assert.Contains(t, FormatPrompt("Note for case 00123"), "Note for case 00123")
}

func TestSwatch(t *testing.T) {
	assert.Contains(t, Swatch("#ffecb3"), "#ffecb3")
	assert.Contains(t, Swatch(""), "–")
}
