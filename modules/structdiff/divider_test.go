package structdiff

import (
	"regexp"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

const delimitedText = `Foo {
    a: 0,
    b: Bar {
        c: 0,
        d: 1,
    }
}
Bar {
    c: 0,
    d: 1,
    e: 2,
}
Foo {
    a: 0,
    b: Bar {
        c: 0,
        d: 1,
    }
}`

const headingsText = `[config]
a = 0
b = 1

[entities]
Friendly, "steve", 35, 24, 10
Enemy, "bob", 20, 12, 5`

const indentedHeadingsText = `[config]
a = 0
b = 1

[entities]
    [Friendly]
        name = "steve"
        health = 35
        damage = 24
        speed = 10

    [Enemy]
        name = "bob"
        health = 20
        damage = 12
        speed = 5

[enviorment]
    [tree]
        height = 10
        width = 20
        leaves = [
            [0, 0],
            [1, 1],
            [2, 2],
        ]

    [grass]
        density = 0.5
        color = [0.5, 0.5, 0.5]`

const enclosedText = `<Foo>
    <val a=0/>
    <Bar>
        <val c=0/>
        <val d=1/>
    </Bar>
</Foo>
<Bar>
    <val c=0/>
    <val d=1/>
    <val e=2/>
</Bar>
<Foo bazz=true>
    <val a=0/>
    <Bar>
        <val c=0/>
        <val d=1/>
    </Bar>
</Foo>`

func sortedByUpper(rv RangeVec) RangeVec {
	out := slices.Clone(rv)
	slices.SortFunc(out, func(a, b InclRange) int {
		return a.Upper - b.Upper
	})
	return out
}

func TestDelimitedDivider(t *testing.T) {
	divider := &Delimited{
		Prefix: regexp.MustCompile(`Foo`),
		Open:   regexp.MustCompile(`\{`),
		Close:  regexp.MustCompile(`\}`),
	}
	results := sortedByUpper(divider.Divide(SplitLines(delimitedText)))
	assert.Equal(t, RangeVec{{0, 6}, {12, 18}}, results)
}

func TestHeadingsDivider(t *testing.T) {
	divider := &Headings{
		Fuzzed: regexp.MustCompile(`\[.*\]`),
		Strict: regexp.MustCompile(`\[entities\]`),
		Indent: "",
	}
	results := sortedByUpper(divider.Divide(SplitLines(headingsText)))
	assert.Equal(t, RangeVec{{4, 6}}, results)
}

func TestHeadingsDividerIndented(t *testing.T) {
	divider := &Headings{
		Fuzzed: regexp.MustCompile(`\[[a-z|A-Z]*\]`),
		Strict: regexp.MustCompile(`\[entities\]`),
		Indent: "    ",
	}
	results := sortedByUpper(divider.Divide(SplitLines(indentedHeadingsText)))
	assert.Equal(t, RangeVec{{4, 16}}, results)
}

func TestEnclosedDivider(t *testing.T) {
	divider := &Enclosures{
		Top:    regexp.MustCompile(`<Foo.*>`),
		Bottom: regexp.MustCompile(`</Foo>`),
	}
	results := sortedByUpper(divider.Divide(SplitLines(enclosedText)))
	assert.Equal(t, RangeVec{{0, 6}, {12, 18}}, results)
}

func TestDividerEndpointsInRange(t *testing.T) {
	// A block that never balances clamps to the last line.
	divider := &Delimited{
		Prefix: regexp.MustCompile(`Foo`),
		Open:   regexp.MustCompile(`\{`),
		Close:  regexp.MustCompile(`\}`),
	}
	lines := SplitLines("Foo {\n    a: 0,")
	results := divider.Divide(lines)
	assert.Equal(t, RangeVec{{0, 1}}, results)
	for _, r := range results {
		assert.LessOrEqual(t, r.Lower, r.Upper)
		assert.Less(t, r.Upper, len(lines))
	}
}

func TestIndentDepth(t *testing.T) {
	assert.Equal(t, 0, indentDepth("[config]", "    "))
	assert.Equal(t, 1, indentDepth("    [tree]", "    "))
	assert.Equal(t, 2, indentDepth("        height = 10", "    "))
	assert.Equal(t, 0, indentDepth("        anything", ""))
}
