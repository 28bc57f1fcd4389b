package structdiff

import (
	"strings"
	"unicode/utf8"
)

// sink interns lines so the diff runs over small integers instead of string
// comparisons.
type sink struct {
	lines []string
	index map[string]int
}

func newSink() *sink {
	return &sink{
		lines: make([]string, 0, 200),
		index: make(map[string]int),
	}
}

func (s *sink) addLine(line string) int {
	if i, ok := s.index[line]; ok {
		return i
	}
	i := len(s.lines)
	s.index[line] = i
	s.lines = append(s.lines, line)
	return i
}

func (s *sink) addLines(lines []string) []int {
	out := make([]int, 0, len(lines))
	for _, line := range lines {
		out = append(out, s.addLine(line))
	}
	return out
}

// SplitLines splits text into lines the way the diff engine counts them: a
// trailing newline does not produce a final empty line, and a trailing
// carriage return is stripped from each line. Empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func validText(texts ...string) error {
	for _, t := range texts {
		if !utf8.ValidString(t) {
			return ErrEncoding
		}
	}
	return nil
}
