// Package engine runs simulations: the agent registry and step scheduler,
// the misinformation battle model, its metrics series and termination
// policy, and the timed loop that drives a model for live display.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/deepfake-battle/internal/agents"
	"github.com/talgya/deepfake-battle/internal/entropy"
	"github.com/talgya/deepfake-battle/internal/network"
)

// ModelBattle names the generator/detector misinformation model.
const ModelBattle = "battle"

// Series column names of the battle model.
const (
	SeriesUnexposed             = "Unexposed"
	SeriesExposed               = "Exposed"
	SeriesLabeled               = "Labeled"
	SeriesActiveGenerators      = "ActiveGenerators"
	SeriesNeutralizedGenerators = "NeutralizedGenerators"
)

// Battle is one detector/generator engagement.
type Battle struct {
	Step        int            `json:"step"`
	DetectorID  agents.ID      `json:"detector_id"`
	GeneratorID agents.ID      `json:"generator_id"`
	Outcome     agents.Outcome `json:"outcome"`
}

// Census holds aggregate counts over the agent set.
type Census struct {
	Unexposed             int `json:"unexposed"`
	Exposed               int `json:"exposed"` // Exposed but not labeled
	Labeled               int `json:"labeled"`
	ActiveGenerators      int `json:"active_generators"`
	NeutralizedGenerators int `json:"neutralized_generators"`
}

func (c Census) values() []int {
	return []int{c.Unexposed, c.Exposed, c.Labeled, c.ActiveGenerators, c.NeutralizedGenerators}
}

// Simulation is the misinformation battle model. It exclusively owns its
// random source, registry and agents; nothing is shared between instances
// and no locking is done.
type Simulation struct {
	params   Params
	seed     int64
	rng      *rand.Rand
	grid     *network.Grid[agents.Agent]
	registry *Registry[agents.Agent]

	steps   int
	running bool
	reasons []StopReason

	series  *Series
	battles []Battle
	events  []Event
}

// Option customizes Assemble.
type Option func(*assembleOptions)

type assembleOptions struct {
	capacity int
}

// WithNodeCapacity sets how many agents may share a node (default 1).
func WithNodeCapacity(n int) Option {
	return func(o *assembleOptions) { o.capacity = n }
}

// New builds the reference model: a generated network sized for every agent,
// users then generators then detectors on consecutive nodes, and one random
// user exposed as patient zero.
func New(p Params, spec network.Spec) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: network: %v", ErrInvalidParams, err)
	}

	seed := entropy.Resolve(p.Seed)
	topo, err := spec.Generate(p.NumAgents(), entropy.Derive(seed, entropy.OffsetTopology))
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}

	rng := entropy.New(seed)
	spawner := agents.NewSpawner(rng)
	pop := spawner.SpawnPopulation(p.NumUsers, p.NumGenerators, p.NumDetectors)
	if u := spawner.PatientZero(pop.Users); u != nil {
		slog.Debug("patient zero exposed", "user", u.ID())
	}

	return assemble(p, seed, rng, topo, pop.All(), WithNodeCapacity(spec.NodeCapacity))
}

// Assemble builds a model from an explicit topology and population, already
// in their initial state. Agent counts in p are ignored in favor of pop.
func Assemble(p Params, topo *network.Topology, pop []agents.Agent, opts ...Option) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	seed := entropy.Resolve(p.Seed)
	return assemble(p, seed, entropy.New(seed), topo, pop, opts...)
}

func assemble(p Params, seed int64, rng *rand.Rand, topo *network.Topology, pop []agents.Agent, opts ...Option) (*Simulation, error) {
	o := assembleOptions{capacity: 1}
	for _, opt := range opts {
		opt(&o)
	}

	grid := network.NewGrid[agents.Agent](topo, o.capacity)
	seen := make(map[agents.ID]bool, len(pop))
	for _, a := range pop {
		if seen[a.ID()] {
			return nil, fmt.Errorf("%w: duplicate agent id %d", ErrInvalidParams, a.ID())
		}
		seen[a.ID()] = true
		if err := grid.Place(a, a.Node()); err != nil {
			return nil, fmt.Errorf("%w: agent %d: %v", ErrInvalidParams, a.ID(), err)
		}
	}

	s := &Simulation{
		params:   p,
		seed:     seed,
		rng:      rng,
		grid:     grid,
		registry: NewRegistry(pop...),
		running:  true,
		series: NewSeries(
			SeriesUnexposed,
			SeriesExposed,
			SeriesLabeled,
			SeriesActiveGenerators,
			SeriesNeutralizedGenerators,
		),
	}

	census := s.Census()
	s.series.Append(0, census.values()...)
	s.stop(initialStopReasons(p, census), census)

	slog.Info("simulation initialized",
		"users", census.Unexposed+census.Exposed+census.Labeled,
		"generators", census.ActiveGenerators+census.NeutralizedGenerators,
		"agents", s.registry.Len(),
		"nodes", topo.Len(),
		"edges", topo.EdgeCount(),
		"node_capacity", grid.Capacity(),
		"seed", seed,
		"running", s.running,
	)
	return s, nil
}

// Step runs one round: every agent registered at the start of the round acts
// once in a freshly shuffled order, then metrics are collected and the stop
// conditions are evaluated. A terminated model returns ErrNotRunning and is
// left untouched.
func (s *Simulation) Step() error {
	if !s.running {
		return ErrNotRunning
	}

	env := stepEnv{s: s}
	s.registry.Activate(s.rng, func(a agents.Agent) {
		note := a.Step(env)
		if note.Empty() {
			return
		}
		slog.Debug(note.Text, "step", s.steps+1, "category", note.Category)
		s.events = appendEvent(s.events, Event{
			Step:        s.steps + 1,
			Category:    note.Category,
			Description: note.Text,
		})
	})
	s.steps++

	census := s.Census()
	s.series.Append(s.steps, census.values()...)

	slog.Debug("step complete",
		"step", s.steps,
		"unexposed", census.Unexposed,
		"exposed", census.Exposed,
		"labeled", census.Labeled,
		"active_generators", census.ActiveGenerators,
		"neutralized_generators", census.NeutralizedGenerators,
	)

	s.checkStop(census)
	return nil
}

func (s *Simulation) checkStop(c Census) {
	s.stop(stopReasons(s.params, s.steps, c), c)
}

func (s *Simulation) stop(reasons []StopReason, c Census) {
	if len(reasons) == 0 {
		return
	}
	s.running = false
	s.reasons = reasons
	slog.Info("simulation stopped",
		"step", s.steps,
		"reason", string(reasons[0]),
		"neutralized", fmt.Sprintf("%d/%d", c.NeutralizedGenerators, c.ActiveGenerators+c.NeutralizedGenerators),
	)
}

// Census counts users and generators by state. Read-only.
func (s *Simulation) Census() Census {
	var c Census
	for _, a := range s.registry.All() {
		switch v := a.(type) {
		case *agents.User:
			switch {
			case v.Labeled():
				c.Labeled++
			case v.Exposed():
				c.Exposed++
			default:
				c.Unexposed++
			}
		case *agents.Generator:
			if v.Neutralized() {
				c.NeutralizedGenerators++
			} else {
				c.ActiveGenerators++
			}
		}
	}
	return c
}

// CountUnexposed counts users who have not been exposed.
func (s *Simulation) CountUnexposed() int { return s.Census().Unexposed }

// CountExposed counts users who are exposed but not labeled.
func (s *Simulation) CountExposed() int { return s.Census().Exposed }

// CountLabeled counts users whose content has been labeled.
func (s *Simulation) CountLabeled() int { return s.Census().Labeled }

// CountActiveGenerators counts generators that are not neutralized.
func (s *Simulation) CountActiveGenerators() int { return s.Census().ActiveGenerators }

// CountNeutralizedGenerators counts neutralized generators.
func (s *Simulation) CountNeutralizedGenerators() int { return s.Census().NeutralizedGenerators }

// Name returns ModelBattle.
func (s *Simulation) Name() string { return ModelBattle }

// Seed returns the seed the random source was built from.
func (s *Simulation) Seed() int64 { return s.seed }

// Params returns the run parameters.
func (s *Simulation) Params() Params { return s.params }

// Config returns the run parameters.
func (s *Simulation) Config() any { return s.params }

// Running reports whether Step may still be called.
func (s *Simulation) Running() bool { return s.running }

// StepCount returns the number of completed rounds.
func (s *Simulation) StepCount() int { return s.steps }

// StopReason returns the highest-priority reason the run stopped, or "".
func (s *Simulation) StopReason() string {
	if len(s.reasons) == 0 {
		return ""
	}
	return string(s.reasons[0])
}

// StopReasons returns every stop condition that held when the run stopped.
func (s *Simulation) StopReasons() []StopReason {
	return append([]StopReason(nil), s.reasons...)
}

// Series returns the metrics time series.
func (s *Simulation) Series() *Series { return s.series }

// Battles returns the battle log in the order engagements happened.
func (s *Simulation) Battles() []Battle {
	return append([]Battle(nil), s.battles...)
}

// Events returns the most recent notable events.
func (s *Simulation) Events() []Event {
	return append([]Event(nil), s.events...)
}

// Agents returns every agent in creation order.
func (s *Simulation) Agents() []agents.Agent {
	return append([]agents.Agent(nil), s.registry.All()...)
}

// Topology returns the social graph.
func (s *Simulation) Topology() *network.Topology { return s.grid.Topology() }

// Occupants describes every agent for display.
func (s *Simulation) Occupants() []Occupant {
	all := s.registry.All()
	out := make([]Occupant, 0, len(all))
	for _, a := range all {
		out = append(out, Occupant{
			ID:    uint64(a.ID()),
			Kind:  a.Kind().String(),
			State: a.State(),
			Node:  a.Node(),
		})
	}
	return out
}

// stepEnv exposes the model to agent transitions.
type stepEnv struct {
	s *Simulation
}

func (e stepEnv) Rand() agents.Rand { return e.s.rng }

func (e stepEnv) Rates() agents.Rates {
	return agents.Rates{
		Generation: e.s.params.GenerationRate,
		Detection:  e.s.params.DetectionRate,
		Accuracy:   e.s.params.DetectionAccuracy,
		Spread:     e.s.params.SpreadRate,
	}
}

func (e stepEnv) Neighbors(node int64) []int64 {
	return e.s.grid.Topology().Neighbors(node)
}

func (e stepEnv) AgentsAt(node int64) []agents.Agent {
	return e.s.grid.At(node)
}

func (e stepEnv) RecordBattle(detector, generator agents.ID, outcome agents.Outcome) {
	e.s.battles = append(e.s.battles, Battle{
		Step:        e.s.steps + 1,
		DetectorID:  detector,
		GeneratorID: generator,
		Outcome:     outcome,
	})
}
