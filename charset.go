package ritual

import "sort"

// charset answers membership of a codepoint in a character class.
// ASCII codepoints are looked up in a bitmap, everything above in a
// sorted list of ranges with a binary search.
//
// Name        | Range         | bits | bytes
// ------------+---------------+------+-------
// ASCII       | U+0000–007F   |  128 | 16
type charset struct {
	ascii  [16]byte
	ranges []Range
}

const asciiMax = 0x7F

func newCharset(ranges []Range) *charset {
	cs := &charset{}
	for _, r := range CanonicalizeRanges(ranges) {
		if r.Lower <= asciiMax {
			for c := r.Lower; c <= min(r.Upper, asciiMax); c++ {
				cs.ascii[c>>3] |= 1 << (c & 7)
			}
			if r.Upper <= asciiMax {
				continue
			}
			r.Lower = asciiMax + 1
		}
		cs.ranges = append(cs.ranges, r)
	}
	return cs
}

func (cs *charset) has(r rune) bool {
	if r < 0 {
		return false
	}
	if r <= asciiMax {
		// `r>>3` and `r&7` instead of `r/8` and `r%8`
		return cs.ascii[r>>3]&(1<<(r&7)) != 0
	}
	i := sort.Search(len(cs.ranges), func(i int) bool {
		return cs.ranges[i].Upper >= r
	})
	return i < len(cs.ranges) && cs.ranges[i].Lower <= r
}
