package structdiff

import "slices"

// hunk describes one contiguous edit region between two sequences: Del
// elements removed from the old side at P1, Ins elements inserted from the
// new side at P2.
type hunk struct {
	P1  int
	P2  int
	Del int
	Ins int
}

// myersDiff computes a minimal edit script between two sequences using the
// greedy O(ND) algorithm, tracking snake paths so hunks can be recovered in
// one backward walk.
func myersDiff[E comparable](seq1, seq2 []E) []hunk {
	// Common special cases; the early return matters for the tiny inputs
	// this engine mostly sees.
	if len(seq1) == 0 && len(seq2) == 0 {
		return []hunk{}
	}
	if len(seq1) == 0 {
		return []hunk{{Ins: len(seq2)}}
	}
	if len(seq2) == 0 {
		return []hunk{{Del: len(seq1)}}
	}
	followSnake := func(x, y int) int {
		for x < len(seq1) && y < len(seq2) && seq1[x] == seq2[y] {
			x++
			y++
		}
		return x
	}
	// frontier[k]: furthest x of a d-path ending on diagonal k (x-y = k).
	frontier := newDiagonalInts()
	frontier.set(0, followSnake(0, 0))
	paths := newDiagonalPaths()
	if frontier.get(0) == 0 {
		paths.set(0, nil)
	} else {
		paths.set(0, &snakePath{x: 0, y: 0, length: frontier.get(0)})
	}
	d := 0
	k := 0
outer:
	for {
		d++
		// Diagonals outside the band cannot influence the result.
		lowerBound := -min(d, len(seq2)+(d%2))
		upperBound := min(d, len(seq1)+(d%2))
		for k = lowerBound; k <= upperBound; k += 2 {
			xTop, xLeft := -1, -1
			if k != upperBound {
				xTop = frontier.get(k + 1) // vertical step: insert into seq2's view
			}
			if k != lowerBound {
				xLeft = frontier.get(k-1) + 1 // horizontal step: delete from seq1
			}
			x := min(max(xTop, xLeft), len(seq1))
			y := x - k
			if x > len(seq1) || y > len(seq2) {
				continue
			}
			newX := followSnake(x, y)
			frontier.set(k, newX)
			var prev *snakePath
			if x == xTop {
				prev = paths.get(k + 1)
			} else {
				prev = paths.get(k - 1)
			}
			if newX != x {
				paths.set(k, &snakePath{pre: prev, x: x, y: y, length: newX - x})
			} else {
				paths.set(k, prev)
			}
			if frontier.get(k) == len(seq1) && frontier.get(k)-k == len(seq2) {
				break outer
			}
		}
	}
	path := paths.get(k)
	last1 := len(seq1)
	last2 := len(seq2)
	hunks := make([]hunk, 0, 10)
	for {
		var endX, endY int
		if path != nil {
			endX = path.x + path.length
			endY = path.y + path.length
		}
		if endX != last1 || endY != last2 {
			hunks = append(hunks, hunk{P1: endX, P2: endY, Del: last1 - endX, Ins: last2 - endY})
		}
		if path == nil {
			break
		}
		last1 = path.x
		last2 = path.y
		path = path.pre
	}
	slices.Reverse(hunks)
	return hunks
}

// snakePath is one link of the recovered middle-snake chain.
type snakePath struct {
	pre          *snakePath
	x, y, length int
}

// diagonalInts is an int array indexed by possibly negative diagonals.
type diagonalInts struct {
	positive []int
	negative []int
}

func newDiagonalInts() *diagonalInts {
	return &diagonalInts{
		positive: make([]int, 10),
		negative: make([]int, 10),
	}
}

func (t *diagonalInts) get(i int) int {
	if i < 0 {
		return t.negative[-i-1]
	}
	return t.positive[i]
}

func (t *diagonalInts) set(i, v int) {
	arr := &t.positive
	if i < 0 {
		i = -i - 1
		arr = &t.negative
	}
	for i >= len(*arr) {
		grown := make([]int, len(*arr)*2)
		copy(grown, *arr)
		*arr = grown
	}
	(*arr)[i] = v
}

// diagonalPaths maps possibly negative diagonals to snake chains.
type diagonalPaths struct {
	positive map[int]*snakePath
	negative map[int]*snakePath
}

func newDiagonalPaths() *diagonalPaths {
	return &diagonalPaths{
		positive: make(map[int]*snakePath),
		negative: make(map[int]*snakePath),
	}
}

func (t *diagonalPaths) get(i int) *snakePath {
	if i < 0 {
		return t.negative[-i-1]
	}
	return t.positive[i]
}

func (t *diagonalPaths) set(i int, v *snakePath) {
	if i < 0 {
		t.negative[-i-1] = v
		return
	}
	t.positive[i] = v
}
