package tui

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_Ascii(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n", termenv.Ascii)

	out := buf.String()
	assert.Contains(t, out, "|_|   |____/|_|  |_|")
	assert.Contains(t, out, "v0.1.0")
	assert.NotContains(t, out, "\x1b[")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)

	out, err := render("| Step | Input |\n|---|---|\n| 0 | 1 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Step")
	assert.Contains(t, out, "Input")
}
