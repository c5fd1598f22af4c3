package virus

import "github.com/talgya/deepfake-battle/internal/engine"

// State is a node's infection state.
type State int

const (
	Susceptible State = iota
	Infected
	Resistant
)

func (s State) String() string {
	switch s {
	case Infected:
		return "infected"
	case Resistant:
		return "resistant"
	default:
		return "susceptible"
	}
}

// Agent is one node of the contact network.
type Agent struct {
	id    uint64
	node  int64
	state State
}

func (a *Agent) ID() uint64 { return a.id }
func (a *Agent) Node() int64 { return a.node }
func (a *Agent) State() State { return a.state }

// step runs one activation against m.
func (a *Agent) step(m *Model) {
	if a.state == Infected {
		a.infectNeighbors(m)
	}
	if a.state == Infected && m.rng.Float64() < m.params.CheckFrequency {
		a.tryRemoveInfection(m)
	}
}

func (a *Agent) infectNeighbors(m *Model) {
	for _, n := range m.topo.Neighbors(a.node) {
		other := m.byNode[n]
		if other == nil || other.state != Susceptible {
			continue
		}
		if m.rng.Float64() < m.params.SpreadChance {
			other.state = Infected
			m.record(engine.Event{
				Category:    CategoryInfection,
				Description: infectionText(a, other),
			})
		}
	}
}

func (a *Agent) tryRemoveInfection(m *Model) {
	if m.rng.Float64() >= m.params.RecoveryChance {
		return
	}
	a.state = Susceptible
	if m.rng.Float64() < m.params.GainResistanceChance {
		a.state = Resistant
		m.record(engine.Event{
			Category:    CategoryResistance,
			Description: resistanceText(a),
		})
	}
}
