package ritual

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharset(t *testing.T) {
	cs := newCharset(rs('a', 'c', 0x7E, 0x100, 0x4E00, 0x9FFF))

	for _, test := range []struct {
		Name     string
		Rune     rune
		Expected bool
	}{
		{Name: "ascii member", Rune: 'b', Expected: true},
		{Name: "ascii non member", Rune: 'd', Expected: false},
		{Name: "range across the ascii boundary, low end", Rune: 0x7F, Expected: true},
		{Name: "range across the ascii boundary, high end", Rune: 0xFF, Expected: true},
		{Name: "past the range", Rune: 0x101, Expected: false},
		{Name: "cjk", Rune: '中', Expected: true},
		{Name: "max codepoint", Rune: MaxCodepoint, Expected: false},
		{Name: "negative", Rune: -1, Expected: false},
	} {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, cs.has(test.Rune))
		})
	}
}

func TestCharsetFull(t *testing.T) {
	cs := newCharset(FullRanges)
	assert.True(t, cs.has(0))
	assert.True(t, cs.has('z'))
	assert.True(t, cs.has(MaxCodepoint))
}
