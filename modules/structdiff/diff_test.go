package structdiff

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const originalMap = `config: {
    scroll_speed: 0.1,
    view_distance: 10,
},
objs: {
    press: {
        lane: 0,
        time: 0,
        color: 0xFF0000,
    },
    hold: {
        lane: 1,
        time: 0,
        color: 0x00FF00,
    },
    press: {
        lane: 2,
        time: 0,
        color: 0x0000FF,
    },
}`

const moddedMap = `config: {
    scroll_speed: 0.1,
    view_distance: 10,
},
objs: {
    press: {
        lane: 2,
        time: 0,
        color: 0xFF0000,
    },
    hold: {
        lane: 2,
        time: 1,
        color: 0x00FF00,
    },
    hold: {
        lane: 2,
        time: 0,
        color: 0x0000FF,
    },
}`

func TestAddedAndRemoved(t *testing.T) {
	modded, err := BuildFrom(originalMap, moddedMap, "")
	require.NoError(t, err)
	assert.Equal(t, []int{6, 11, 12, 15}, modded.Removed)
	assert.Equal(t, []int{6, 11, 12, 15}, modded.Added)
}

func TestPatch(t *testing.T) {
	diff, err := BuildFrom(originalMap, moddedMap, "")
	require.NoError(t, err)
	remade, err := diff.Patch(SplitLines(originalMap))
	require.NoError(t, err)
	assert.Equal(t, SplitLines(moddedMap), remade)
}

const alphaOriginal = "a\nb\nc\nd\ne\nf"
const alphaModded1 = "a\nc\nd\ne\nf"
const alphaModded2 = "a\nb\nc\nd\nG\ne\nf"
const expectedAlpha1 = "a\nc\nd\nG\ne\nf"

func TestPatchRoundTrip(t *testing.T) {
	diff, err := BuildFrom(alphaOriginal, "a\nc\nd\nG\ne\nf", "")
	require.NoError(t, err)
	patched, err := diff.Patch(SplitLines(alphaOriginal))
	require.NoError(t, err)
	assert.Equal(t, SplitLines("a\nc\nd\nG\ne\nf"), patched)
}

func TestMergeMods(t *testing.T) {
	modded1, err := BuildFrom(alphaOriginal, alphaModded1, "")
	require.NoError(t, err)
	modded2, err := BuildFrom(alphaOriginal, alphaModded2, "")
	require.NoError(t, err)

	require.NoError(t, modded1.Extend(modded2))
	assert.Equal(t, SuperModComment, modded1.Comment)
	patched, err := modded1.PatchText(alphaOriginal)
	require.NoError(t, err)
	assert.Equal(t, expectedAlpha1, patched)
}

func TestExtendWithEmptyDiffIsIdentity(t *testing.T) {
	diff, err := BuildFrom(alphaOriginal, alphaModded1, "some comment")
	require.NoError(t, err)
	empty, err := BuildFrom(alphaOriginal, alphaOriginal, "")
	require.NoError(t, err)
	assert.Empty(t, empty.Changes)

	changes := slices.Clone(diff.Changes)
	removed := slices.Clone(diff.Removed)
	added := slices.Clone(diff.Added)
	require.NoError(t, diff.Extend(empty))
	assert.Equal(t, changes, diff.Changes)
	assert.Equal(t, removed, diff.Removed)
	assert.Equal(t, added, diff.Added)
}

func TestBuildFromRejectsInvalidUTF8(t *testing.T) {
	_, err := BuildFrom("a\nb", string([]byte{0xff, 0xfe}), "")
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestPatchDetectsCorruptOffsets(t *testing.T) {
	diff := &StructDiff{
		Changes: []Change{{Op: OpRemove, Index: 10}},
	}
	_, err := diff.Patch([]string{"a", "b"})
	assert.ErrorIs(t, err, ErrCorruptDiff)
}

func TestBuildFromStoresCommentVerbatim(t *testing.T) {
	diff, err := BuildFrom("a", "b", "keep "+IOSeparator+" as is")
	require.NoError(t, err)
	assert.Contains(t, diff.Comment, IOSeparator)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a"}, SplitLines("a"))
	assert.Equal(t, []string{"a"}, SplitLines("a\n"))
	assert.Equal(t, []string{"a", ""}, SplitLines("a\n\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\r\n"))
}
