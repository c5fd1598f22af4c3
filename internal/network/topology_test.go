package network

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEdges(t *testing.T) {
	topo, err := FromEdges(4, [][2]int64{{0, 1}, {2, 1}, {1, 3}, {0, 1}})
	require.NoError(t, err)

	assert.Equal(t, 4, topo.Len())
	assert.Equal(t, 3, topo.EdgeCount(), "duplicate edge must be ignored")
	assert.Equal(t, []int64{0, 2, 3}, topo.Neighbors(1))
	assert.Equal(t, []int64{1}, topo.Neighbors(0))
	assert.True(t, topo.Adjacent(3, 1))
	assert.False(t, topo.Adjacent(0, 2))
	assert.Equal(t, [][2]int64{{0, 1}, {1, 2}, {1, 3}}, topo.Edges())
}

func TestFromEdgesRejectsBadEdges(t *testing.T) {
	_, err := FromEdges(2, [][2]int64{{0, 0}})
	assert.ErrorIs(t, err, ErrSelfLoop)

	_, err = FromEdges(2, [][2]int64{{0, 5}})
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestNeighborsOfUnknownNode(t *testing.T) {
	topo := Complete(3)
	assert.Nil(t, topo.Neighbors(-1))
	assert.Nil(t, topo.Neighbors(3))
	assert.Equal(t, 0, topo.Degree(7))
	assert.False(t, topo.Adjacent(0, 9))
}

func TestComplete(t *testing.T) {
	topo := Complete(5)
	assert.Equal(t, 10, topo.EdgeCount())
	for u := int64(0); u < 5; u++ {
		assert.Equal(t, 4, topo.Degree(u))
	}
}

func TestSmallWorldLatticeWithoutRewiring(t *testing.T) {
	topo := SmallWorld(10, 4, 0, rand.New(rand.NewSource(1)))

	assert.Equal(t, 20, topo.EdgeCount())
	assert.Equal(t, []int64{1, 2, 8, 9}, topo.Neighbors(0))
	assert.Equal(t, []int64{3, 4, 6, 7}, topo.Neighbors(5))
}

func TestSmallWorldRewiringKeepsEdgeCount(t *testing.T) {
	topo := SmallWorld(38, 4, 0.3, rand.New(rand.NewSource(42)))

	assert.Equal(t, 38*2, topo.EdgeCount())
	for _, e := range topo.Edges() {
		assert.NotEqual(t, e[0], e[1])
	}
}

func TestSmallWorldIsDeterministic(t *testing.T) {
	a := SmallWorld(50, 4, 0.5, rand.New(rand.NewSource(7)))
	b := SmallWorld(50, 4, 0.5, rand.New(rand.NewSource(7)))
	assert.Equal(t, a.Edges(), b.Edges())
}

func TestSmallWorldSmallGraphsAreComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, 0, SmallWorld(1, 4, 0.3, rng).EdgeCount())
	assert.Equal(t, 1, SmallWorld(2, 4, 0.3, rng).EdgeCount())
	assert.Equal(t, 6, SmallWorld(4, 4, 0.3, rng).EdgeCount())
}

func TestRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	assert.Equal(t, 0, Random(20, 0, rng).EdgeCount())
	assert.Equal(t, 190, Random(20, 1, rng).EdgeCount())
}

func TestSpecGenerate(t *testing.T) {
	spec := DefaultSpec()
	topo, err := spec.Generate(12, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 12, topo.Len())
	assert.Equal(t, 24, topo.EdgeCount())

	spec.Kind = KindRandom
	spec.EdgeProbability = 1
	topo, err = spec.Generate(6, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 15, topo.EdgeCount())
}

func TestSpecValidate(t *testing.T) {
	spec := DefaultSpec()
	require.NoError(t, spec.Validate())

	spec.Kind = "lattice"
	assert.Error(t, spec.Validate())

	spec = DefaultSpec()
	spec.Rewire = 1.2
	assert.Error(t, spec.Validate())

	spec = DefaultSpec()
	spec.NodeCapacity = 0
	assert.Error(t, spec.Validate())

	_, err := DefaultSpec().Generate(-1, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
