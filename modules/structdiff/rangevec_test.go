package structdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeVecFlatten(t *testing.T) {
	rv := RangeVec{{0, 10}, {5, 9}, {20, 30}, {21, 25}}
	assert.Equal(t, RangeVec{{0, 10}, {20, 30}}, rv.flattened())
}

func TestRangeVecUnion(t *testing.T) {
	assert.Equal(t, RangeVec{{0, 20}}, RangeVec{{0, 10}}.UnionWith(RangeVec{{6, 20}}))
	assert.Equal(t, RangeVec{{0, 20}}, RangeVec{{0, 10}}.UnionWith(RangeVec{{10, 20}}))
	// commutative
	assert.Equal(t, RangeVec{{0, 20}}, RangeVec{{6, 20}}.UnionWith(RangeVec{{0, 10}}))
	// idempotent
	assert.Equal(t, RangeVec{{0, 10}}, RangeVec{{0, 10}}.UnionWith(RangeVec{{0, 10}}))
	// disjoint ranges stay separate
	assert.Equal(t, RangeVec{{0, 2}, {4, 6}}, RangeVec{{0, 2}}.UnionWith(RangeVec{{4, 6}}))
}

func TestRangeVecIntersection(t *testing.T) {
	assert.Equal(t, RangeVec{{6, 10}}, RangeVec{{0, 10}}.IntersectionWith(RangeVec{{6, 20}}))
	assert.Equal(t, RangeVec{{10, 10}}, RangeVec{{0, 10}}.IntersectionWith(RangeVec{{10, 20}}))
	assert.Equal(t, RangeVec{{2, 8}}, RangeVec{{0, 10}}.IntersectionWith(RangeVec{{2, 8}}))
	assert.Equal(t, RangeVec{{0, 10}}, RangeVec{{0, 10}}.IntersectionWith(RangeVec{{0, 10}}))
	// commutative
	assert.Equal(t, RangeVec{{6, 10}}, RangeVec{{6, 20}}.IntersectionWith(RangeVec{{0, 10}}))
	// disjoint
	assert.Empty(t, RangeVec{{0, 2}}.IntersectionWith(RangeVec{{4, 6}}))
}

func TestRangeVecJoined(t *testing.T) {
	assert.Equal(t,
		RangeVec{{0, 0}, {2, 5}, {7, 8}},
		RangeVec{{0, 0}, {2, 3}, {3, 5}, {7, 8}}.joined())
	assert.Equal(t,
		RangeVec{{0, 1}, {3, 5}, {7, 8}},
		RangeVec{{0, 0}, {1, 1}, {3, 5}, {7, 8}}.joined())
	assert.Equal(t,
		RangeVec{{0, 0}, {2, 6}, {8, 9}, {11, 11}},
		RangeVec{{0, 0}, {2, 5}, {4, 6}, {8, 9}, {11, 11}}.joined())
}

func TestRangeVecInverse(t *testing.T) {
	inv, err := RangeVec{{0, 2}, {4, 7}, {12, 20}}.Inverse(25)
	require.NoError(t, err)
	assert.Equal(t, RangeVec{{2, 4}, {7, 12}, {20, 24}}, inv)

	inv, err = RangeVec{{0, 2}, {4, 7}, {12, 20}, {23, 25}}.Inverse(26)
	require.NoError(t, err)
	assert.Equal(t, RangeVec{{2, 4}, {7, 12}, {20, 23}, {25, 25}}, inv)

	// singletons are dropped before inversion
	inv, err = RangeVec{{3, 3}}.Inverse(10)
	require.NoError(t, err)
	assert.Empty(t, inv)

	_, err = RangeVec{{0, 2}}.Inverse(0)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRangeVecInverseCoversComplement(t *testing.T) {
	rv := RangeVec{{0, 2}, {4, 7}, {12, 20}}
	inv, err := rv.Inverse(25)
	require.NoError(t, err)
	covered := inv.UnionWith(rv.PreOps().flattened().joined())
	assert.Equal(t, RangeVec{{0, 24}}, covered)
}

func TestRangeVecThatOverlap(t *testing.T) {
	rv := RangeVec{{0, 10}, {12, 20}, {22, 30}}
	other := RangeVec{{2, 4}, {7, 12}}
	assert.Equal(t, RangeVec{{0, 10}, {12, 20}}, rv.ThatOverlap(other))
}

func TestRangeVecPreOps(t *testing.T) {
	rv := RangeVec{{5, 6}, {5, 6}, {0, 2}}
	assert.Equal(t, RangeVec{{0, 2}, {5, 6}}, rv.PreOps())
}

func TestInclRangeContains(t *testing.T) {
	r := InclRange{Lower: 2, Upper: 5}
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(1))
	assert.False(t, r.Contains(6))
}
