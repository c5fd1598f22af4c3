package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/deepfake-battle/internal/agents"
	"github.com/talgya/deepfake-battle/internal/network"
)

func seeded(p Params, seed int64) Params {
	p.Seed = &seed
	return p
}

func pairTopology(t *testing.T) *network.Topology {
	t.Helper()
	topo, err := network.FromEdges(2, [][2]int64{{0, 1}})
	require.NoError(t, err)
	return topo
}

func TestNewReferenceModel(t *testing.T) {
	sim, err := New(seeded(DefaultParams(), 42), network.DefaultSpec())
	require.NoError(t, err)

	assert.True(t, sim.Running())
	assert.Equal(t, 0, sim.StepCount())
	assert.Equal(t, int64(42), sim.Seed())
	assert.Equal(t, 38, sim.Topology().Len())
	assert.Len(t, sim.Agents(), 38)

	assert.Equal(t, 1, sim.CountExposed(), "exactly one patient zero")
	assert.Equal(t, 29, sim.CountUnexposed())
	assert.Equal(t, 0, sim.CountLabeled())
	assert.Equal(t, 3, sim.CountActiveGenerators())
	assert.Equal(t, 0, sim.CountNeutralizedGenerators())

	last, ok := sim.Series().Last()
	require.True(t, ok)
	assert.Equal(t, Sample{Step: 0, Values: []int{29, 1, 0, 3, 0}}, last)
}

func TestNewRejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.NumUsers = -1
	_, err := New(p, network.DefaultSpec())
	assert.ErrorIs(t, err, ErrInvalidParams)

	p = DefaultParams()
	p.SpreadRate = 1.5
	_, err = New(p, network.DefaultSpec())
	assert.ErrorIs(t, err, ErrInvalidParams)

	spec := network.DefaultSpec()
	spec.Kind = "hypercube"
	_, err = New(DefaultParams(), spec)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

// Scenario A: a lone, already exposed user leaves nothing to do.
func TestSingleExposedUserStopsImmediately(t *testing.T) {
	p := DefaultParams()
	p.NumUsers, p.NumGenerators, p.NumDetectors = 1, 0, 0
	p.AutoStopWhenAllExposed = true

	sim, err := New(seeded(p, 1), network.DefaultSpec())
	require.NoError(t, err)

	assert.Equal(t, 1, sim.CountExposed())
	assert.Equal(t, 0, sim.CountUnexposed())
	assert.False(t, sim.Running())
	assert.Equal(t, []StopReason{StopAllExposed}, sim.StopReasons())

	assert.ErrorIs(t, sim.Step(), ErrNotRunning)
	assert.Equal(t, 0, sim.StepCount())
	assert.Equal(t, 1, sim.Series().Len())
}

func TestRunWithoutGeneratorsExecutesOneStep(t *testing.T) {
	p := DefaultParams()
	p.NumUsers, p.NumGenerators, p.NumDetectors = 10, 0, 0
	p.SpreadRate = 1
	p.AutoStopWhenAllExposed = false

	sim, err := New(seeded(p, 7), network.DefaultSpec())
	require.NoError(t, err)
	require.True(t, sim.Running())
	assert.Empty(t, sim.StopReasons())

	n, err := Drive(context.Background(), sim, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, sim.StepCount())
	assert.False(t, sim.Running())
	assert.Equal(t, string(StopAllNeutralized), sim.StopReason())
	assert.Equal(t, 2, sim.Series().Len())
}

// Scenario B: a generator with rate 1.0 always reaches its only neighbor.
func TestGeneratorExposesAdjacentUser(t *testing.T) {
	p := DefaultParams()
	p.GenerationRate = 1.0
	p.DetectionRate = 0.0
	p.AutoStopWhenAllExposed = false

	gen := agents.NewGenerator(0, 0, 0.1)
	user := agents.NewUser(1, 1)
	sim, err := Assemble(seeded(p, 3), pairTopology(t), []agents.Agent{gen, user})
	require.NoError(t, err)
	require.False(t, user.Exposed())

	require.NoError(t, sim.Step())

	assert.True(t, user.Exposed())
	assert.Equal(t, 0, sim.CountUnexposed())
	assert.Equal(t, 1, sim.StepCount())
	assert.True(t, sim.Running())
	require.NotEmpty(t, sim.Events())
	assert.Equal(t, agents.CategoryExposure, sim.Events()[0].Category)
}

// Scenario C: a detector facing a weakened, non-evading generator wins.
func TestDetectorNeutralizesWeakenedGenerator(t *testing.T) {
	p := DefaultParams()
	p.DetectionRate = 1.0
	p.AutoStopWhenAllExposed = false

	det := agents.NewDetector(0, 0)
	gen := agents.NewGenerator(1, 1, 0, agents.WithEffectiveness(0.4))
	sim, err := Assemble(seeded(p, 11), pairTopology(t), []agents.Agent{det, gen})
	require.NoError(t, err)
	require.True(t, sim.Running())

	require.NoError(t, sim.Step())

	assert.Equal(t, 0.2, gen.Effectiveness())
	assert.True(t, gen.Neutralized())
	assert.Equal(t, 1, det.Victories())
	assert.Equal(t, []Battle{{Step: 1, DetectorID: 0, GeneratorID: 1, Outcome: agents.OutcomeDetectorWin}}, sim.Battles())

	assert.False(t, sim.Running())
	assert.Equal(t, string(StopAllNeutralized), sim.StopReason())
}

// Scenario D: an evaded roll leaves the generator untouched.
func TestEvasionLeavesGeneratorUntouched(t *testing.T) {
	p := DefaultParams()
	p.DetectionRate = 1.0
	p.GenerationRate = 0
	p.AutoStopWhenAllExposed = false

	for seed := int64(1); seed <= 64; seed++ {
		det := agents.NewDetector(0, 0)
		gen := agents.NewGenerator(1, 1, 0.5)
		sim, err := Assemble(seeded(p, seed), pairTopology(t), []agents.Agent{det, gen})
		require.NoError(t, err)
		require.NoError(t, sim.Step())

		battles := sim.Battles()
		require.Len(t, battles, 1)
		if battles[0].Outcome != agents.OutcomeGeneratorEvaded {
			continue
		}
		assert.Equal(t, 1.0, gen.Effectiveness())
		assert.False(t, gen.Neutralized())
		assert.Equal(t, 0, det.Victories())
		assert.True(t, sim.Running())
		return
	}
	t.Fatal("no seed produced an evasion")
}

func TestMaxStepsBoundsRun(t *testing.T) {
	p := DefaultParams()
	p.MaxSteps = 5
	p.DetectionRate = 0
	p.AutoStopWhenAllExposed = false

	sim, err := New(seeded(p, 9), network.DefaultSpec())
	require.NoError(t, err)

	n, err := Drive(context.Background(), sim, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, sim.StepCount())
	assert.Equal(t, string(StopMaxSteps), sim.StopReason())
	assert.Equal(t, 6, sim.Series().Len())

	assert.ErrorIs(t, sim.Step(), ErrNotRunning)
	assert.Equal(t, 6, sim.Series().Len(), "a rejected step must not collect metrics")
}

func TestRunsAreDeterministicForASeed(t *testing.T) {
	p := DefaultParams()
	p.AutoStopWhenAllExposed = false

	run := func() *Simulation {
		sim, err := New(seeded(p, 2024), network.DefaultSpec())
		require.NoError(t, err)
		_, err = Drive(context.Background(), sim, 60)
		require.NoError(t, err)
		return sim
	}

	a, b := run(), run()
	assert.Equal(t, a.Series().Samples(), b.Series().Samples())
	assert.Equal(t, a.Battles(), b.Battles())
	assert.Equal(t, a.Events(), b.Events())
	assert.Equal(t, a.Topology().Edges(), b.Topology().Edges())
}

func TestAssembleRejectsBadPlacement(t *testing.T) {
	p := DefaultParams()
	topo := pairTopology(t)

	_, err := Assemble(p, topo, []agents.Agent{agents.NewUser(0, 0), agents.NewUser(0, 1)})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Assemble(p, topo, []agents.Agent{agents.NewUser(0, 0), agents.NewUser(1, 0)})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Assemble(p, topo, []agents.Agent{agents.NewUser(0, 5)})
	assert.ErrorIs(t, err, ErrInvalidParams)

	sim, err := Assemble(p, topo, []agents.Agent{agents.NewUser(0, 0), agents.NewUser(1, 0)}, WithNodeCapacity(2))
	require.NoError(t, err)
	assert.Len(t, sim.Agents(), 2)
}

func TestEmptyNodesAreNotErrors(t *testing.T) {
	p := DefaultParams()
	p.SpreadRate = 1
	p.AutoStopWhenAllExposed = false

	topo, err := network.FromEdges(3, [][2]int64{{0, 1}, {1, 2}})
	require.NoError(t, err)
	user := agents.NewUser(0, 1)
	user.Expose()
	gen := agents.NewGenerator(1, 2, 0)

	sim, err := Assemble(seeded(p, 5), topo, []agents.Agent{user, gen})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, sim.Step())
	}
	assert.Equal(t, 3, sim.StepCount())
}

func TestOccupants(t *testing.T) {
	p := DefaultParams()
	user := agents.NewUser(0, 0)
	user.Expose()
	gen := agents.NewGenerator(1, 1, 0)

	sim, err := Assemble(p, pairTopology(t), []agents.Agent{user, gen})
	require.NoError(t, err)

	assert.Equal(t, []Occupant{
		{ID: 0, Kind: "user", State: agents.StateExposed, Node: 0},
		{ID: 1, Kind: "generator", State: agents.StateActive, Node: 1},
	}, sim.Occupants())
	assert.Equal(t, ModelBattle, sim.Name())
	assert.Equal(t, p, sim.Config())
}
