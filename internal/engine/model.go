package engine

import "github.com/talgya/deepfake-battle/internal/network"

// Model is a steppable simulation as seen by its drivers and displays.
type Model interface {
	// Name identifies the model variant.
	Name() string
	// Seed is the seed the run's random source was built from.
	Seed() int64
	// Step runs one full round. It returns ErrNotRunning once terminated.
	Step() error
	Running() bool
	StepCount() int
	// StopReason is empty while running.
	StopReason() string
	Series() *Series
	Events() []Event
	Topology() *network.Topology
	Occupants() []Occupant
	// Config returns the run parameters for display and archiving.
	Config() any
}

// BattleLog is implemented by models that record detector/generator fights.
type BattleLog interface {
	Battles() []Battle
}

// Occupant describes one agent for display.
type Occupant struct {
	ID    uint64 `json:"id"`
	Kind  string `json:"kind"`
	State string `json:"state"`
	Node  int64  `json:"node"`
}

// Event is a notable occurrence during a run.
type Event struct {
	Step        int    `json:"step"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

func appendEvent(events []Event, e Event) []Event {
	events = append(events, e)
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	return events
}
