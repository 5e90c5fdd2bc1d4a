package lexer

import (
	"sort"

	"github.com/npillmayer/glrts/base"
)

// openEnd stands in for "to the end of the input" when a range list is
// empty (an empty list means the whole input is included).
const openEnd = ^uint32(0)

// DiffRanges computes the byte spans whose inclusion status differs
// between two included-range configurations: bytes covered by exactly one
// of the two. A subtree from a previous parse whose span overlaps such a
// span was lexed under different inclusion rules and must not be reused.
// Adjacent changed intervals are coalesced; the result is sorted and
// disjoint.
func DiffRanges(oldRanges, newRanges []Range) []base.Span {
	a, b := normalizeRanges(oldRanges), normalizeRanges(newRanges)

	cuts := make([]uint32, 0, 2*(len(a)+len(b))+2)
	for _, s := range a {
		cuts = append(cuts, s.From(), s.To())
	}
	for _, s := range b {
		cuts = append(cuts, s.From(), s.To())
	}
	cuts = append(cuts, 0, openEnd)
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	var out []base.Span
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]
		if lo >= hi {
			continue
		}
		if coversByte(a, lo) == coversByte(b, lo) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].To() == lo {
			out[n-1][1] = hi
		} else {
			out = append(out, base.Span{lo, hi})
		}
	}
	return out
}

func normalizeRanges(rs []Range) []base.Span {
	if len(rs) == 0 {
		return []base.Span{{0, openEnd}}
	}
	out := make([]base.Span, len(rs))
	for i, r := range rs {
		out[i] = base.Span{r.StartByte, r.EndByte}
	}
	return out
}

func coversByte(set []base.Span, p uint32) bool {
	for _, s := range set {
		if p >= s.From() && p < s.To() {
			return true
		}
	}
	return false
}
