package agents

import (
	"fmt"
	"math"
)

const (
	// NeutralizeThreshold is the effectiveness at or below which a generator
	// is neutralized.
	NeutralizeThreshold = 0.4
	// HitDamage is the effectiveness lost per successful detector hit.
	HitDamage = 0.2
	// MaxEvasion bounds the evasion skill drawn for spawned generators.
	MaxEvasion = 0.5
)

// Generator states.
const (
	StateActive      = "active"
	StateNeutralized = "neutralized"
)

// Generator produces deepfake content. Its effectiveness only decreases,
// and once neutralized it never acts again.
type Generator struct {
	base
	effectiveness float64
	neutralized   bool
	evasion       float64
}

// GeneratorOption customizes a generator at creation.
type GeneratorOption func(*Generator)

// WithEffectiveness sets the starting effectiveness (default 1.0).
func WithEffectiveness(e float64) GeneratorOption {
	return func(g *Generator) { g.effectiveness = e }
}

// NewGenerator creates an active generator with full effectiveness and the
// given evasion skill.
func NewGenerator(id ID, node int64, evasion float64, opts ...GeneratorOption) *Generator {
	g := &Generator{
		base:          base{id: id, node: node},
		effectiveness: 1.0,
		evasion:       evasion,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Kind() Kind { return KindGenerator }

// Effectiveness is the generator's remaining capacity to expose users.
func (g *Generator) Effectiveness() float64 { return g.effectiveness }

// Neutralized reports whether detectors have knocked the generator out.
func (g *Generator) Neutralized() bool { return g.neutralized }

// EvasionSkill is the threshold a detection roll must exceed to land a hit.
func (g *Generator) EvasionSkill() float64 { return g.evasion }

// State returns active or neutralized.
func (g *Generator) State() string {
	if g.neutralized {
		return StateNeutralized
	}
	return StateActive
}

// Step exposes the first unexposed user on a random neighbor node with
// probability generation rate × effectiveness.
func (g *Generator) Step(env Env) Note {
	if g.neutralized {
		return Note{}
	}
	if env.Rand().Float64() >= env.Rates().Generation*g.effectiveness {
		return Note{}
	}
	target, ok := pickNeighbor(env, g.node)
	if !ok {
		return Note{}
	}
	if victim, ok := exposeFirst(env, target); ok {
		return Note{
			Category: CategoryExposure,
			Text:     fmt.Sprintf("user %d was exposed by generator %d", victim.id, g.id),
		}
	}
	return Note{}
}

// absorbHit applies one detector hit and reports whether it neutralized the
// generator. Effectiveness is rounded to ten decimals so repeated 0.2 steps
// land exactly on the threshold instead of drifting just above it.
func (g *Generator) absorbHit() bool {
	g.effectiveness = math.Round((g.effectiveness-HitDamage)*1e10) / 1e10
	if g.effectiveness <= NeutralizeThreshold {
		g.neutralized = true
	}
	return g.neutralized
}
