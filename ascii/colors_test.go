package ascii

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPainterPlain(t *testing.T) {
	p := NewPainter(&bytes.Buffer{}, DefaultTheme, ColorNever)

	t.Run("no escape codes without color support", func(t *testing.T) {
		assert.Equal(t, "error: 3 problems", p.Error("error: %d problems", 3))
		assert.Equal(t, "rule", p.Color(p.Theme.Operator, "rule"))
		assert.Equal(t, "hint", p.Muted("hint"))
	})

	t.Run("empty color", func(t *testing.T) {
		assert.Equal(t, "x", p.Color("", "x"))
		assert.Equal(t, "y", p.Bold("", "y"))
	})
}

func TestPainterColors(t *testing.T) {
	p := NewPainter(&bytes.Buffer{}, DefaultTheme, ColorAuto)
	// a buffer is never a terminal
	assert.Equal(t, "done", p.Success("done"))
}

func TestPainterForcedColors(t *testing.T) {
	p := NewPainter(&bytes.Buffer{}, DefaultTheme, ColorAlways)
	assert.Contains(t, p.Success("done"), "\x1b[")
	assert.Contains(t, p.Success("done"), "done")
}

func TestParseColorMode(t *testing.T) {
	for name, expected := range map[string]ColorMode{
		"auto":   ColorAuto,
		"always": ColorAlways,
		"never":  ColorNever,
	} {
		mode, err := ParseColorMode(name)
		require.NoError(t, err)
		assert.Equal(t, expected, mode)
	}

	_, err := ParseColorMode("sometimes")
	assert.EqualError(t, err, "unknown color mode `sometimes`")
}
