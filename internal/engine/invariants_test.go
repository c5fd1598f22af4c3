package engine

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/talgya/deepfake-battle/internal/agents"
	"github.com/talgya/deepfake-battle/internal/network"
)

type runShape struct {
	Seed       int64
	Users      int
	Generators int
	Detectors  int
	Rates      []float64
}

func genRunShape() gopter.Gen {
	return gopter.CombineGens(
		gen.Int64Range(0, 1<<40),
		gen.IntRange(0, 40),
		gen.IntRange(0, 6),
		gen.IntRange(0, 8),
		gen.SliceOfN(4, gen.Float64Range(0, 1)),
	).Map(func(v []any) runShape {
		return runShape{
			Seed:       v[0].(int64),
			Users:      v[1].(int),
			Generators: v[2].(int),
			Detectors:  v[3].(int),
			Rates:      v[4].([]float64),
		}
	})
}

func (r runShape) params(maxSteps int) Params {
	seed := r.Seed
	return Params{
		NumUsers:          r.Users,
		NumGenerators:     r.Generators,
		NumDetectors:      r.Detectors,
		GenerationRate:    r.Rates[0],
		DetectionRate:     r.Rates[1],
		DetectionAccuracy: r.Rates[2],
		SpreadRate:        r.Rates[3],
		MaxSteps:          maxSteps,
		Seed:              &seed,
	}
}

// invariantsHold checks labeled => exposed and neutralized => effectiveness <= 0.4.
func invariantsHold(sim *Simulation) bool {
	for _, a := range sim.Agents() {
		switch v := a.(type) {
		case *agents.User:
			if v.Labeled() && !v.Exposed() {
				return false
			}
		case *agents.Generator:
			if v.Neutralized() && v.Effectiveness() > agents.NeutralizeThreshold {
				return false
			}
		}
	}
	return true
}

func labeledUsers(sim *Simulation) map[agents.ID]bool {
	out := make(map[agents.ID]bool)
	for _, a := range sim.Agents() {
		if u, ok := a.(*agents.User); ok && u.Labeled() {
			out[u.ID()] = true
		}
	}
	return out
}

func TestModelProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("monotone counts and preserved invariants", prop.ForAll(
		func(shape runShape) bool {
			sim, err := New(shape.params(40), network.DefaultSpec())
			if err != nil {
				return false
			}
			if !invariantsHold(sim) {
				return false
			}
			prevUnexposed := sim.CountUnexposed()
			prevNeutralized := sim.CountNeutralizedGenerators()
			prevLabeled := labeledUsers(sim)

			for sim.Running() {
				if err := sim.Step(); err != nil {
					return false
				}
				if !invariantsHold(sim) {
					return false
				}
				unexposed := sim.CountUnexposed()
				neutralized := sim.CountNeutralizedGenerators()
				labeled := labeledUsers(sim)
				if unexposed > prevUnexposed || neutralized < prevNeutralized {
					return false
				}
				for id := range prevLabeled {
					if !labeled[id] {
						return false
					}
				}
				prevUnexposed, prevNeutralized, prevLabeled = unexposed, neutralized, labeled
			}
			return true
		},
		genRunShape(),
	))

	properties.Property("max steps bounds every run", prop.ForAll(
		func(shape runShape) bool {
			sim, err := New(shape.params(5), network.DefaultSpec())
			if err != nil {
				return false
			}
			n, err := Drive(context.Background(), sim, 0)
			return err == nil && n <= 5 && sim.StepCount() <= 5 && !sim.Running()
		},
		genRunShape(),
	))

	properties.Property("same seed gives identical series", prop.ForAll(
		func(shape runShape) bool {
			a, errA := New(shape.params(25), network.DefaultSpec())
			b, errB := New(shape.params(25), network.DefaultSpec())
			if errA != nil || errB != nil {
				return false
			}
			Drive(context.Background(), a, 0)
			Drive(context.Background(), b, 0)
			sa, sb := a.Series().Samples(), b.Series().Samples()
			if len(sa) != len(sb) {
				return false
			}
			for i := range sa {
				if sa[i].Step != sb[i].Step || len(sa[i].Values) != len(sb[i].Values) {
					return false
				}
				for j := range sa[i].Values {
					if sa[i].Values[j] != sb[i].Values[j] {
						return false
					}
				}
			}
			return true
		},
		genRunShape(),
	))

	properties.TestingRun(t)
}
