package ritual

import (
	"slices"
)

// Canonical range sets are sorted, non-overlapping and non-adjacent
// lists of codepoint ranges within [0, MaxCodepoint].  Every function
// here takes and returns canonical sets unless told otherwise.

// FullRanges is the set of every codepoint
var FullRanges = []Range{{Lower: 0, Upper: MaxCodepoint}}

// CanonicalizeRanges sorts and merges overlapping and adjacent ranges.
// The input doesn't need to be canonical and isn't modified.
func CanonicalizeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b Range) int {
		if a.Lower != b.Lower {
			return int(a.Lower - b.Lower)
		}
		return int(a.Upper - b.Upper)
	})
	out := make([]Range, 0, len(sorted))
	current := sorted[0]
	for _, r := range sorted[1:] {
		if r.Lower <= current.Upper+1 {
			current.Upper = max(current.Upper, r.Upper)
			continue
		}
		out = append(out, current)
		current = r
	}
	return append(out, current)
}

// InvertRanges returns the complement of a canonical set within the
// codepoint domain.
func InvertRanges(ranges []Range) []Range {
	var (
		out   []Range
		lower rune
	)
	for _, r := range ranges {
		if r.Lower > lower {
			out = append(out, Range{Lower: lower, Upper: r.Lower - 1})
		}
		lower = r.Upper + 1
	}
	if lower <= MaxCodepoint {
		out = append(out, Range{Lower: lower, Upper: MaxCodepoint})
	}
	return out
}

// UnionRanges returns every codepoint in either `a` or `b`.
func UnionRanges(a, b []Range) []Range {
	return CanonicalizeRanges(append(slices.Clone(a), b...))
}

// IntersectRanges returns every codepoint in both `a` and `b`.
func IntersectRanges(a, b []Range) []Range {
	return InvertRanges(UnionRanges(InvertRanges(a), InvertRanges(b)))
}

// RangesIntersect tells if at least one codepoint belongs to both
// `a` and `b`.
func RangesIntersect(a, b []Range) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Upper < b[j].Lower:
			i++
		case b[j].Upper < a[i].Lower:
			j++
		default:
			return true
		}
	}
	return false
}

// characterRanges converts the ranges of a character class, possibly
// inverted, into the canonical set of codepoints it accepts.
func characterRanges(ranges []Range, invert bool) []Range {
	canonical := CanonicalizeRanges(ranges)
	if invert {
		return InvertRanges(canonical)
	}
	return canonical
}

// classRanges converts a canonical set back into the shortest
// character class ranges: the set itself, or the complement when the
// set extends to the end of the domain.
func classRanges(canonical []Range) (ranges []Range, invert bool) {
	if len(canonical) > 0 && canonical[len(canonical)-1].Upper == MaxCodepoint {
		return InvertRanges(canonical), true
	}
	return canonical, false
}
