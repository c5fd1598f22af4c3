// Package virus implements the susceptible/infected/resistant spread of
// content across a random contact network, a simpler companion to the
// generator/detector battle model that shares its scheduler and metrics.
package virus

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/entropy"
	"github.com/talgya/deepfake-battle/internal/network"
)

// ModelVirus names the virus-on-network model.
const ModelVirus = "virus"

// Series column names.
const (
	SeriesInfected    = "Infected"
	SeriesSusceptible = "Susceptible"
	SeriesResistant   = "Resistant"
)

// Event categories.
const (
	CategoryInfection  = "infection"
	CategoryResistance = "resistance"
)

// StopNoInfected is reported once the outbreak has died out.
const StopNoInfected = "no infected agents remain"

// Model is a virus-on-network run. Like the battle model it owns its random
// source and is not safe for concurrent use.
type Model struct {
	params   Params
	seed     int64
	rng      *rand.Rand
	topo     *network.Topology
	registry *engine.Registry[*Agent]
	byNode   map[int64]*Agent

	steps   int
	running bool
	reason  string

	series *engine.Series
	events []engine.Event
}

// New builds an Erdős-Rényi contact network with one agent per node and
// infects InitialOutbreakSize distinct random nodes.
func New(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	seed := entropy.Resolve(p.Seed)
	topo := network.Random(p.NumNodes, p.edgeProbability(), entropy.Derive(seed, entropy.OffsetTopology))

	m := &Model{
		params:   p,
		seed:     seed,
		rng:      entropy.New(seed),
		topo:     topo,
		registry: engine.NewRegistry[*Agent](),
		byNode:   make(map[int64]*Agent, p.NumNodes),
		running:  true,
		series:   engine.NewSeries(SeriesInfected, SeriesSusceptible, SeriesResistant),
	}
	for i := 0; i < p.NumNodes; i++ {
		a := &Agent{id: uint64(i), node: int64(i)}
		m.registry.Add(a)
		m.byNode[a.node] = a
	}
	for _, node := range m.rng.Perm(p.NumNodes)[:p.InitialOutbreakSize] {
		m.byNode[int64(node)].state = Infected
	}

	m.collect()
	slog.Info("virus model initialized",
		"nodes", topo.Len(),
		"edges", topo.EdgeCount(),
		"outbreak", p.InitialOutbreakSize,
		"seed", seed,
	)
	return m, nil
}

// Step activates every agent once in random order and records the census.
func (m *Model) Step() error {
	if !m.running {
		return engine.ErrNotRunning
	}
	m.registry.Activate(m.rng, func(a *Agent) { a.step(m) })
	m.steps++
	m.collect()
	return nil
}

func (m *Model) collect() {
	inf, sus, res := m.Counts()
	m.series.Append(m.steps, inf, sus, res)

	switch {
	case m.steps >= m.params.MaxSteps:
		m.reason = string(engine.StopMaxSteps)
	case inf == 0:
		m.reason = StopNoInfected
	default:
		return
	}
	m.running = false
	slog.Info("virus model stopped", "step", m.steps, "reason", m.reason)
}

func (m *Model) record(e engine.Event) {
	e.Step = m.steps + 1
	slog.Debug(e.Description, "step", e.Step, "category", e.Category)
	m.events = append(m.events, e)
	if over := len(m.events) - 1000; over > 0 {
		m.events = m.events[over:]
	}
}

// Counts returns the number of infected, susceptible and resistant agents.
func (m *Model) Counts() (infected, susceptible, resistant int) {
	for _, a := range m.registry.All() {
		switch a.state {
		case Infected:
			infected++
		case Resistant:
			resistant++
		default:
			susceptible++
		}
	}
	return infected, susceptible, resistant
}

// ResistantSusceptibleRatio is +Inf when no agent is susceptible.
func (m *Model) ResistantSusceptibleRatio() float64 {
	_, sus, res := m.Counts()
	if sus == 0 {
		return math.Inf(1)
	}
	return float64(res) / float64(sus)
}

func (m *Model) Name() string { return ModelVirus }
func (m *Model) Seed() int64 { return m.seed }
func (m *Model) Params() Params { return m.params }
func (m *Model) Config() any { return m.params }
func (m *Model) Running() bool { return m.running }
func (m *Model) StepCount() int { return m.steps }
func (m *Model) StopReason() string { return m.reason }
func (m *Model) Series() *engine.Series { return m.series }
func (m *Model) Topology() *network.Topology { return m.topo }
func (m *Model) Agents() []*Agent { return append([]*Agent(nil), m.registry.All()...) }
func (m *Model) Events() []engine.Event { return append([]engine.Event(nil), m.events...) }

// Occupants describes every agent for display.
func (m *Model) Occupants() []engine.Occupant {
	all := m.registry.All()
	out := make([]engine.Occupant, 0, len(all))
	for _, a := range all {
		out = append(out, engine.Occupant{ID: a.id, Kind: "node", State: a.state.String(), Node: a.node})
	}
	return out
}

func infectionText(from, to *Agent) string {
	return fmt.Sprintf("agent %d infected agent %d", from.id, to.id)
}

func resistanceText(a *Agent) string {
	return fmt.Sprintf("agent %d became resistant", a.id)
}

var _ engine.Model = (*Model)(nil)
