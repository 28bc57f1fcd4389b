package structdiff

import (
	"regexp"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Divider partitions a line sequence into semantic blocks. The set of
// variants is closed: Delimited, Headings and Enclosures. Divide returns one
// range per block; result order is the order block starts appear in the
// input, callers that need a different order sort explicitly.
type Divider interface {
	Divide(lines []string) RangeVec

	start() *regexp.Regexp
	balance(lines []string, start int) int
}

// Delimited blocks begin at a line matching Prefix; the body extends until
// Open/Close occurrences balance back to zero.
type Delimited struct {
	Prefix *regexp.Regexp
	Open   *regexp.Regexp
	Close  *regexp.Regexp
}

// Enclosures blocks begin and balance on the same Top pattern, closing on
// Bottom.
type Enclosures struct {
	Top    *regexp.Regexp
	Bottom *regexp.Regexp
}

// Headings blocks begin at a line matching Strict (Fuzzed when Strict is
// absent) and end on the line before the next Fuzzed match at the same
// indentation depth.
type Headings struct {
	Fuzzed *regexp.Regexp
	Strict *regexp.Regexp
	Indent string
}

func (d *Delimited) Divide(lines []string) RangeVec  { return divide(d, lines) }
func (d *Enclosures) Divide(lines []string) RangeVec { return divide(d, lines) }
func (d *Headings) Divide(lines []string) RangeVec   { return divide(d, lines) }

func (d *Delimited) start() *regexp.Regexp  { return d.Prefix }
func (d *Enclosures) start() *regexp.Regexp { return d.Top }
func (d *Headings) start() *regexp.Regexp {
	if d.Strict != nil {
		return d.Strict
	}
	return d.Fuzzed
}

func (d *Delimited) balance(lines []string, start int) int {
	return balancedEnd(lines, start, d.Open, d.Close)
}

func (d *Enclosures) balance(lines []string, start int) int {
	return balancedEnd(lines, start, d.Top, d.Bottom)
}

func (d *Headings) balance(lines []string, start int) int {
	depth := indentDepth(lines[start], d.Indent)
	for i := start + 1; i < len(lines); i++ {
		if d.Fuzzed.MatchString(lines[i]) && indentDepth(lines[i], d.Indent) == depth {
			return i - 1
		}
	}
	return len(lines) - 1
}

// balancedEnd scans from start, skipping lines until the first open match,
// then tracks nesting depth by counting open and close occurrences per line.
// Counting occurrences rather than single matches lets an inline block close
// on its own line. A scan that walks off the end clamps to the last line.
func balancedEnd(lines []string, start int, open, close *regexp.Regexp) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		if !opened {
			if !open.MatchString(lines[i]) {
				continue
			}
			opened = true
		}
		depth += len(open.FindAllStringIndex(lines[i], -1))
		depth -= len(close.FindAllStringIndex(lines[i], -1))
		if depth <= 0 {
			return i
		}
	}
	return len(lines) - 1
}

// indentDepth counts how many whole repetitions of indent the line starts
// with.
// An empty indent unit means depth is always zero.
func indentDepth(line, indent string) int {
	if indent == "" {
		return 0
	}
	depth := 0
	for len(line) >= len(indent) && line[:len(indent)] == indent {
		depth++
		line = line[len(indent):]
	}
	return depth
}

// divide finds every line matching the divider's start pattern and balances
// each block concurrently. Results land in start order, so the output is
// deterministic regardless of scheduling.
func divide(d Divider, lines []string) RangeVec {
	pattern := d.start()
	starts := make([]int, 0, 16)
	for i, line := range lines {
		if pattern.MatchString(line) {
			starts = append(starts, i)
		}
	}
	ranges := make(RangeVec, len(starts))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k, s := range starts {
		g.Go(func() error {
			ranges[k] = InclRange{Lower: s, Upper: d.balance(lines, s)}
			return nil
		})
	}
	_ = g.Wait()
	return ranges
}
