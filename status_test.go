package ritual

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	s := NewStatus()
	first := s.AddSource("a.ritual", "abc\ndef")
	second := s.AddSource("b.ritual", "xyz")
	assert.Equal(t, 0, first)
	assert.Equal(t, 8, second)

	assert.NoError(t, s.HaltIfErrors())

	s.Errorf(first+5, "bad %s", "thing")
	s.Errorf(second+3, "at the end")
	s.Errorf(NoLoc, "nowhere")

	diagnostics := s.Diagnostics()
	require.Len(t, diagnostics, 3)

	t.Run("located in the first source", func(t *testing.T) {
		d := diagnostics[0]
		assert.True(t, d.Located)
		assert.Equal(t, "a.ritual", d.Filename)
		assert.Equal(t, 2, d.Location.Line)
		assert.Equal(t, 1, d.Location.Column)
		assert.Equal(t, "a.ritual:2:1: error: bad thing\ndef\n ^", d.String())
	})

	t.Run("end of the second source", func(t *testing.T) {
		d := diagnostics[1]
		assert.Equal(t, "b.ritual", d.Filename)
		assert.Equal(t, "<EOS>", d.Location.Character)
		assert.Equal(t, "b.ritual:1:3: error: at the end\nxyz\n   ^", d.String())
	})

	t.Run("unlocated", func(t *testing.T) {
		assert.False(t, diagnostics[2].Located)
		assert.Equal(t, "error: nowhere", diagnostics[2].String())
	})

	t.Run("halt", func(t *testing.T) {
		err := s.HaltIfErrors()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrHalted))
		assert.Equal(t, "halting due to 3 errors", err.Error())
		assert.Equal(t, 3, s.Errors())
	})
}

func TestStatusOutOfRange(t *testing.T) {
	s := NewStatus()
	s.AddSource("a.ritual", "abc")
	s.Errorf(100, "far away")
	assert.False(t, s.Diagnostics()[0].Located)
	assert.Equal(t, "halting due to 1 error", s.HaltIfErrors().Error())
}
