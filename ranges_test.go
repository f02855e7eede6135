package ritual

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rs(pairs ...rune) []Range {
	out := make([]Range, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Range{Lower: pairs[i], Upper: pairs[i+1]})
	}
	return out
}

func TestCanonicalizeRanges(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Input    []Range
		Expected []Range
	}{
		{Name: "empty", Input: nil, Expected: nil},
		{Name: "sorted", Input: rs('x', 'z', 'a', 'c'), Expected: rs('a', 'c', 'x', 'z')},
		{Name: "overlapping", Input: rs('a', 'm', 'f', 'z'), Expected: rs('a', 'z')},
		{Name: "adjacent", Input: rs('a', 'c', 'd', 'f'), Expected: rs('a', 'f')},
		{Name: "contained", Input: rs('a', 'z', 'c', 'd'), Expected: rs('a', 'z')},
		{Name: "duplicated", Input: rs('q', 'q', 'q', 'q'), Expected: rs('q', 'q')},
	} {
		t.Run(test.Name, func(t *testing.T) {
			got := CanonicalizeRanges(test.Input)
			assert.Equal(t, test.Expected, got)
			assert.Equal(t, got, CanonicalizeRanges(got))
		})
	}
}

func TestRangeAlgebra(t *testing.T) {
	letters := rs('A', 'Z', 'a', 'z')
	digits := rs('0', '9')

	t.Run("invert", func(t *testing.T) {
		assert.Equal(t, rs(0, '0'-1, '9'+1, MaxCodepoint), InvertRanges(digits))
		assert.Nil(t, InvertRanges(FullRanges))
		assert.Equal(t, FullRanges, InvertRanges(nil))
		assert.Equal(t, letters, InvertRanges(InvertRanges(letters)))
	})

	t.Run("union", func(t *testing.T) {
		assert.Equal(t, rs('0', '9', 'A', 'Z', 'a', 'z'), UnionRanges(letters, digits))
		assert.Equal(t, FullRanges, UnionRanges(digits, InvertRanges(digits)))
	})

	t.Run("intersect", func(t *testing.T) {
		assert.Empty(t, IntersectRanges(letters, digits))
		assert.Equal(t, rs('a', 'f'), IntersectRanges(rs('0', '9', 'a', 'f'), letters))
		assert.Equal(t, letters, IntersectRanges(letters, FullRanges))
	})

	t.Run("intersects", func(t *testing.T) {
		assert.False(t, RangesIntersect(letters, digits))
		assert.True(t, RangesIntersect(letters, rs('Z', 'a')))
		assert.False(t, RangesIntersect(nil, FullRanges))
	})
}

func TestClassRanges(t *testing.T) {
	t.Run("inverted class round trip", func(t *testing.T) {
		accepted := characterRanges(rs('\n', '\n'), true)
		ranges, invert := classRanges(accepted)
		assert.True(t, invert)
		assert.Equal(t, rs('\n', '\n'), ranges)
	})

	t.Run("plain class stays plain", func(t *testing.T) {
		ranges, invert := classRanges(characterRanges(rs('b', 'c', 'a', 'a'), false))
		assert.False(t, invert)
		assert.Equal(t, rs('a', 'c'), ranges)
	})
}
