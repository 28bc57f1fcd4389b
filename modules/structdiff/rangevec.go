package structdiff

import (
	"slices"
)

// InclRange is an inclusive pair of 0-based line indices, Lower <= Upper.
type InclRange struct {
	Lower int
	Upper int
}

// Contains reports whether v lies within [Lower, Upper].
func (r InclRange) Contains(v int) bool {
	return r.Lower <= v && v <= r.Upper
}

// union merges two ranges that share at least one point.
func union(a, b InclRange) (InclRange, bool) {
	if !a.Contains(b.Lower) && !b.Contains(a.Lower) {
		return InclRange{}, false
	}
	return InclRange{Lower: min(a.Lower, b.Lower), Upper: max(a.Upper, b.Upper)}, true
}

// intersection returns the shared span of two ranges, if any.
func intersection(a, b InclRange) (InclRange, bool) {
	if !a.Contains(b.Lower) && !b.Contains(a.Lower) {
		return InclRange{}, false
	}
	return InclRange{Lower: max(a.Lower, b.Lower), Upper: min(a.Upper, b.Upper)}, true
}

// RangeVec is an ordered sequence of inclusive ranges.
type RangeVec []InclRange

// Singletons builds a RangeVec of one-point ranges from line indices.
func Singletons(indices []int) RangeVec {
	rv := make(RangeVec, 0, len(indices))
	for _, i := range indices {
		rv = append(rv, InclRange{Lower: i, Upper: i})
	}
	return rv
}

// Span builds the RangeVec covering [0, n) as one-point ranges.
func Span(n int) RangeVec {
	rv := make(RangeVec, 0, n)
	for i := range n {
		rv = append(rv, InclRange{Lower: i, Upper: i})
	}
	return rv
}

// PreOps normalizes the receiver into the form every set operation expects:
// adjacent duplicates removed, ranges sorted by Lower. The sort is stable so
// equal lowers keep their relative order.
func (rv RangeVec) PreOps() RangeVec {
	out := slices.Compact(slices.Clone(rv))
	slices.SortStableFunc(out, func(a, b InclRange) int {
		return a.Lower - b.Lower
	})
	return out
}

// coalesce walks the sequence pairwise, merging neighbors whenever merge
// succeeds. The receiver must already be sorted by Lower.
func (rv RangeVec) coalesce(merge func(prev, curr InclRange) (InclRange, bool)) RangeVec {
	if len(rv) == 0 {
		return RangeVec{}
	}
	out := RangeVec{rv[0]}
	for _, curr := range rv[1:] {
		prev := out[len(out)-1]
		if merged, ok := merge(prev, curr); ok {
			out[len(out)-1] = merged
			continue
		}
		out = append(out, curr)
	}
	return out
}

// flattened merges adjacent overlapping ranges.
func (rv RangeVec) flattened() RangeVec {
	return rv.coalesce(union)
}

// joined additionally merges ranges separated by a gap of at most one.
func (rv RangeVec) joined() RangeVec {
	return rv.coalesce(func(prev, curr InclRange) (InclRange, bool) {
		if curr.Lower-prev.Upper <= 1 {
			return InclRange{Lower: prev.Lower, Upper: max(prev.Upper, curr.Upper)}, true
		}
		return InclRange{}, false
	})
}

// UnionWith merges the receiver with other into flattened, non-overlapping
// ranges.
func (rv RangeVec) UnionWith(other RangeVec) RangeVec {
	a, b := rv.PreOps(), other.PreOps()
	merged := make(RangeVec, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Lower < b[j].Lower {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged.flattened()
}

// IntersectionWith keeps every span shared between an element of the
// receiver and an element of other.
func (rv RangeVec) IntersectionWith(other RangeVec) RangeVec {
	a, b := rv.PreOps(), other.PreOps()
	out := make(RangeVec, 0, len(a))
	for _, ra := range a {
		for _, rb := range b {
			if shared, ok := intersection(ra, rb); ok {
				out = append(out, shared)
			}
		}
	}
	return out
}

// ThatOverlap retains the elements of the receiver intersecting any element
// of other.
func (rv RangeVec) ThatOverlap(other RangeVec) RangeVec {
	a, b := rv.PreOps(), other.PreOps()
	out := make(RangeVec, 0, len(a))
	for _, ra := range a {
		for _, rb := range b {
			if _, ok := intersection(ra, rb); ok {
				out = append(out, ra)
				break
			}
		}
	}
	return out
}

// Inverse computes the complement of the receiver within [0, exclusiveLim).
// Single-point ranges are dropped before inversion, and the remainder is
// flattened and joined first, so the emitted ranges run between consecutive
// block endpoints.
func (rv RangeVec) Inverse(exclusiveLim int) (RangeVec, error) {
	if exclusiveLim == 0 {
		return nil, ErrEmptyInput
	}
	blocks := rv.PreOps().flattened().joined()
	offsets := make([]int, 0, len(blocks)*2+1)
	for _, r := range blocks {
		if r.Lower == r.Upper {
			continue
		}
		offsets = append(offsets, r.Lower, r.Upper)
	}
	out := RangeVec{}
	if len(offsets) == 0 {
		return out, nil
	}
	head, rest := offsets[0], offsets[1:]
	if head > 0 {
		out = append(out, InclRange{Lower: 0, Upper: head})
	}
	rest = append(rest, exclusiveLim-1)
	for i := 0; i+1 < len(rest); i += 2 {
		lower, upper := rest[i], rest[i+1]
		if lower > upper {
			continue
		}
		out = append(out, InclRange{Lower: lower, Upper: upper})
	}
	return out, nil
}
