package structdiff

import (
	"slices"
)

// Operation tags one entry of a sequence-patch list.
type Operation int8

const (
	// OpRemove deletes the element at Index.
	OpRemove Operation = -1
	// OpUpdate replaces the element at Index with Text.
	OpUpdate Operation = 0
	// OpInsert inserts Text before Index.
	OpInsert Operation = 1
)

// Change is one edit of a sequence-patch list. Index addresses the sequence
// after all prior changes in the list have been applied.
type Change struct {
	Op    Operation
	Index int
	Text  string
}

// StructDiff is a structural diff against a common ancestor text: an ordered
// sequence-patch list plus the touched-index sets locating edits in the
// unified left/right stream. Removed holds positions that originated from
// the old side, Added positions from the new side; both are sorted
// ascending.
type StructDiff struct {
	Comment string   `json:"comment"`
	Changes []Change `json:"changes"`
	Removed []int    `json:"removed"`
	Added   []int    `json:"added"`
}

// SuperModComment marks a diff produced by folding several diffs together.
const SuperModComment = "Super Mod"

// BuildFrom computes the structural diff turning old into new. The comment
// is stored verbatim; sanitizing the IO separator out of it is the caller's
// job.
func BuildFrom(old, new, comment string) (*StructDiff, error) {
	if err := validText(old, new); err != nil {
		return nil, err
	}
	oldLines := SplitLines(old)
	newLines := SplitLines(new)
	s := newSink()
	a := s.addLines(oldLines)
	b := s.addLines(newLines)
	hunks := myersDiff(a, b)

	// Touched-index sets are enumerations over the unified diff stream:
	// Removed counts every token that is not an insertion, Added every token
	// that is not a deletion. Within a hunk deletions precede insertions.
	removed := make([]int, 0, len(hunks))
	added := make([]int, 0, len(hunks))
	changes := make([]Change, 0, len(hunks))
	li, ri := 0, 0
	pos := 0
	for _, h := range hunks {
		eq := h.P1 - pos
		li += eq
		ri += eq
		pos = h.P1 + h.Del
		for range h.Del {
			removed = append(removed, li)
			li++
		}
		for range h.Ins {
			added = append(added, ri)
			ri++
		}
		// The patch list pairs up deletions with insertions as updates and
		// spills the excess as plain removes or inserts. Offsets address the
		// partially patched sequence, which at this point equals the new
		// text up to h.P2.
		paired := min(h.Del, h.Ins)
		for k := range paired {
			changes = append(changes, Change{Op: OpUpdate, Index: h.P2 + k, Text: newLines[h.P2+k]})
		}
		for range h.Del - paired {
			changes = append(changes, Change{Op: OpRemove, Index: h.P2 + paired})
		}
		for k := paired; k < h.Ins; k++ {
			changes = append(changes, Change{Op: OpInsert, Index: h.P2 + k, Text: newLines[h.P2+k]})
		}
	}
	return &StructDiff{
		Comment: comment,
		Changes: changes,
		Removed: removed,
		Added:   added,
	}, nil
}

// Patch applies the change list in order to a copy of original and returns
// the patched lines. A change addressing outside the evolving sequence
// reports ErrCorruptDiff.
func (d *StructDiff) Patch(original []string) ([]string, error) {
	out := slices.Clone(original)
	for _, c := range d.Changes {
		switch c.Op {
		case OpRemove:
			if c.Index < 0 || c.Index >= len(out) {
				return nil, ErrCorruptDiff
			}
			out = slices.Delete(out, c.Index, c.Index+1)
		case OpInsert:
			if c.Index < 0 || c.Index > len(out) {
				return nil, ErrCorruptDiff
			}
			out = slices.Insert(out, c.Index, c.Text)
		case OpUpdate:
			if c.Index < 0 || c.Index >= len(out) {
				return nil, ErrCorruptDiff
			}
			out[c.Index] = c.Text
		default:
			return nil, ErrCorruptDiff
		}
	}
	return out, nil
}

// PatchText is Patch over raw text, joining the result with newlines.
func (d *StructDiff) PatchText(original string) (string, error) {
	lines, err := d.Patch(SplitLines(original))
	if err != nil {
		return "", err
	}
	return joinLines(lines), nil
}

func joinLines(lines []string) string {
	out := make([]byte, 0, 64*len(lines))
	for i, line := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, line...)
	}
	return string(out)
}

// shift is one rebasing entry: changes past offset move by delta.
type shift struct {
	offset int
	delta  int
}

// rebase folds the sorted shifts into an offset: every shift strictly below
// the accumulator applies, the first one at or past it stops the fold.
func rebase(offset int, shifts []shift) int {
	acc := offset
	for _, s := range shifts {
		if s.offset >= acc {
			break
		}
		acc += s.delta
	}
	return acc
}

func sortShifts(shifts []shift) {
	slices.SortFunc(shifts, func(a, b shift) int {
		if a.offset != b.offset {
			return a.offset - b.offset
		}
		return a.delta - b.delta
	})
}

// Extend folds other into the receiver so that the combined diff, applied to
// the common ancestor, carries both edits. Callers must have established via
// Structure.Conflicts that the two do not collide. A rebased offset that
// would go negative reports ErrCorruptDiff.
func (d *StructDiff) Extend(other *StructDiff) error {
	// Rebase other's change list across the receiver's: inserts push later
	// offsets up, removes pull them down, duplicate removes are dropped.
	removedOffsets := make(map[int]bool, len(d.Changes))
	shifts := make([]shift, 0, len(d.Changes))
	seen := make(map[shift]bool, len(d.Changes))
	for _, c := range d.Changes {
		if c.Op == OpRemove {
			removedOffsets[c.Index] = true
		}
		s := shift{offset: c.Index, delta: int(c.Op)}
		if !seen[s] {
			seen[s] = true
			shifts = append(shifts, s)
		}
	}
	sortShifts(shifts)
	rebased := make([]Change, 0, len(other.Changes))
	for _, c := range other.Changes {
		if c.Op == OpRemove && removedOffsets[c.Index] {
			continue
		}
		idx := rebase(c.Index, shifts)
		if idx < 0 {
			return ErrCorruptDiff
		}
		c.Index = idx
		rebased = append(rebased, c)
	}
	d.Changes = append(d.Changes, rebased...)

	// The touched-index sets live in the unified-stream coordinate space;
	// rebase them across other's removals and the receiver's additions
	// before taking the union.
	removedSet := make(map[int]bool, len(d.Removed))
	for _, i := range d.Removed {
		removedSet[i] = true
	}
	indexShifts := make([]shift, 0, len(other.Removed)+len(d.Added))
	for _, i := range other.Removed {
		if !removedSet[i] {
			indexShifts = append(indexShifts, shift{offset: i, delta: -1})
		}
	}
	for _, i := range d.Added {
		indexShifts = append(indexShifts, shift{offset: i, delta: 1})
	}
	sortShifts(indexShifts)
	for _, i := range other.Removed {
		idx := rebase(i, indexShifts)
		if idx < 0 {
			return ErrCorruptDiff
		}
		d.Removed = append(d.Removed, idx)
	}
	for _, i := range other.Added {
		idx := rebase(i, indexShifts)
		if idx < 0 {
			return ErrCorruptDiff
		}
		d.Added = append(d.Added, idx)
	}
	slices.Sort(d.Removed)
	slices.Sort(d.Added)
	d.Removed = slices.Compact(d.Removed)
	d.Added = slices.Compact(d.Added)
	d.Comment = SuperModComment
	return nil
}
