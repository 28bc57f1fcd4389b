package structdiff

import (
	"regexp"
	"slices"
)

// Key locates identifying substrings within a line. Fuzzed selects candidate
// regions, Strict extracts the key text inside each. A key with no Fuzzed
// pattern never matches.
type Key struct {
	Fuzzed *regexp.Regexp
	Strict *regexp.Regexp
}

// Find returns every non-empty Strict match inside every Fuzzed match of the
// line.
func (k *Key) Find(line string) []string {
	if k.Fuzzed == nil {
		return nil
	}
	var found []string
	for _, token := range k.Fuzzed.FindAllString(line, -1) {
		for _, m := range k.Strict.FindAllString(token, -1) {
			if m != "" {
				found = append(found, m)
			}
		}
	}
	return found
}

// Config composes the filter and expander dividers with the key set that
// identifies objects for conflict detection. Filter and Expander may be nil.
type Config struct {
	Filter   Divider
	Expander Divider
	Keys     []*Key
}

// Filtered returns the regions of lines eligible to contain objects. Without
// a filter the whole sequence is in scope.
func (c *Config) Filtered(lines []string) RangeVec {
	if c.Filter == nil {
		return RangeVec{{Lower: 0, Upper: len(lines)}}
	}
	return c.Filter.Divide(lines)
}

// Objs returns the complete semantic objects confined to the filtered
// region. Without an expander every line is its own object.
func (c *Config) Objs(lines []string) RangeVec {
	objs := Span(len(lines))
	if c.Expander != nil {
		objs = c.Expander.Divide(lines)
	}
	return objs.IntersectionWith(c.Filtered(lines))
}

// Structure owns the line vector of an ancestor text together with the
// config describing its block grammar. Contents are read-only after
// construction.
type Structure struct {
	Contents []string
	Config   *Config
}

// NewStructure splits text into lines and pairs it with config.
func NewStructure(text string, config *Config) (*Structure, error) {
	if err := validText(text); err != nil {
		return nil, err
	}
	return &Structure{
		Contents: SplitLines(text),
		Config:   config,
	}, nil
}

// LineKeys is the key multiset found on one object line.
type LineKeys struct {
	Line int
	Keys []string
}

// Keys collects, for every line inside an object, the key matches from every
// configured key. Rows are sorted by line index.
func (s *Structure) Keys() []LineKeys {
	var rows []LineKeys
	for _, r := range s.Config.Objs(s.Contents) {
		for i := r.Lower; i <= r.Upper && i < len(s.Contents); i++ {
			var keys []string
			for _, k := range s.Config.Keys {
				keys = append(keys, k.Find(s.Contents[i])...)
			}
			rows = append(rows, LineKeys{Line: i, Keys: keys})
		}
	}
	slices.SortStableFunc(rows, func(a, b LineKeys) int {
		return a.Line - b.Line
	})
	return rows
}

// inflate widens the touched indices of patched to the smallest covering set
// of whole objects, keeping everything outside the filter region as
// surrounding context.
func inflate(config *Config, patched []string, indices []int) (*Structure, error) {
	touched := Singletons(indices)
	touched = slices.Compact(touched)
	objs := config.Objs(patched).ThatOverlap(touched)
	context, err := config.Filtered(patched).Inverse(len(patched))
	if err != nil {
		return nil, err
	}
	visible := context.UnionWith(objs).PreOps()
	contents := make([]string, 0, len(patched))
	for _, r := range visible {
		upper := min(r.Upper, len(patched)-1)
		for i := r.Lower; i <= upper; i++ {
			contents = append(contents, patched[i])
		}
	}
	return &Structure{Contents: contents, Config: config}, nil
}

// ForwardInflate patches the ancestor with the diff and inflates the
// post-patch text around the inserted indices, showing the modification with
// full object context.
func (s *Structure) ForwardInflate(d *StructDiff) (*Structure, error) {
	patched, err := d.Patch(s.Contents)
	if err != nil {
		return nil, err
	}
	return inflate(s.Config, patched, d.Added)
}

// BackwardInflate inflates the ancestor text around the removed indices,
// showing what a diff deletes, with context.
func (s *Structure) BackwardInflate(d *StructDiff) (*Structure, error) {
	return inflate(s.Config, s.Contents, d.Removed)
}

// Conflicts decides whether two diffs against the receiver touch overlapping
// objects sharing a key. It returns nil structures when the diffs are
// compatible; otherwise the two returned structures are the minimal
// whole-object views of the colliding objects on each side.
func (s *Structure) Conflicts(left, right *StructDiff) (*Structure, *Structure, error) {
	l, err := s.ForwardInflate(left)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.ForwardInflate(right)
	if err != nil {
		return nil, nil, err
	}
	lk := l.Keys()
	rk := r.Keys()
	var leftLines, rightLines []int
	for i := 0; i < len(lk) && i < len(rk); i++ {
		if sharesKey(lk[i].Keys, rk[i].Keys) {
			leftLines = append(leftLines, lk[i].Line)
			rightLines = append(rightLines, rk[i].Line)
		}
	}
	if len(leftLines) == 0 {
		return nil, nil, nil
	}
	keepLeft, err := inflate(s.Config, l.Contents, leftLines)
	if err != nil {
		return nil, nil, err
	}
	keepRight, err := inflate(s.Config, r.Contents, rightLines)
	if err != nil {
		return nil, nil, err
	}
	return keepLeft, keepRight, nil
}

func sharesKey(left, right []string) bool {
	for _, a := range left {
		if slices.Contains(right, a) {
			return true
		}
	}
	return false
}

// Text joins the structure's contents back into one newline-separated text.
func (s *Structure) Text() string {
	return joinLines(s.Contents)
}
