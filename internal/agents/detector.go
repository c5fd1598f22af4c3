package agents

import "fmt"

// Detector hunts generators and labels exposed users. Its only mutable
// state is the number of generators it has neutralized.
type Detector struct {
	base
	victories int
}

// NewDetector creates a detector on node.
func NewDetector(id ID, node int64) *Detector {
	return &Detector{base: base{id: id, node: node}}
}

func (d *Detector) Kind() Kind { return KindDetector }

// Victories is the number of generators this detector neutralized.
func (d *Detector) Victories() int { return d.victories }

// State always returns active.
func (d *Detector) State() string { return StateActive }

// Step inspects one random neighbor node with probability detection rate.
// An active generator there takes priority: the detector engages it and
// ends its turn. Only a node without an active generator is searched for
// an exposed, unlabeled user to label.
func (d *Detector) Step(env Env) Note {
	rng := env.Rand()
	if rng.Float64() >= env.Rates().Detection {
		return Note{}
	}
	target, ok := pickNeighbor(env, d.node)
	if !ok {
		return Note{}
	}
	occupants := env.AgentsAt(target)

	for _, a := range occupants {
		if g, ok := a.(*Generator); ok && !g.neutralized {
			return d.engage(env, g)
		}
	}

	for _, a := range occupants {
		u, ok := a.(*User)
		if !ok || !u.exposed || u.labeled {
			continue
		}
		if rng.Float64() < env.Rates().Accuracy {
			u.Label()
			return Note{
				Category: CategoryLabel,
				Text:     fmt.Sprintf("user %d was labeled by detector %d", u.id, d.id),
			}
		}
	}
	return Note{}
}

// engage rolls against the generator's evasion skill. A roll at or below
// the skill is an evasion and leaves the generator untouched.
func (d *Detector) engage(env Env, g *Generator) Note {
	if env.Rand().Float64() <= g.evasion {
		env.RecordBattle(d.id, g.id, OutcomeGeneratorEvaded)
		return Note{
			Category: CategoryBattle,
			Text:     fmt.Sprintf("generator %d evaded detector %d", g.id, d.id),
		}
	}

	if g.absorbHit() {
		d.victories++
		env.RecordBattle(d.id, g.id, OutcomeDetectorWin)
		return Note{
			Category: CategoryBattle,
			Text:     fmt.Sprintf("generator %d was neutralized by detector %d", g.id, d.id),
		}
	}
	env.RecordBattle(d.id, g.id, OutcomeDetectorHit)
	return Note{
		Category: CategoryBattle,
		Text:     fmt.Sprintf("detector %d hit generator %d, effectiveness %.1f", d.id, g.id, g.effectiveness),
	}
}
