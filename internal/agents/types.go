// Package agents provides the agent kinds of the misinformation model and
// their per-step state machines.
package agents

// ID is a unique identifier for an agent, stable for the lifetime of a run.
type ID uint64

// Kind identifies which state machine an agent runs. Fixed at creation.
type Kind uint8

const (
	KindUser      Kind = iota // Social media user who can be exposed and labeled
	KindGenerator             // Deepfake content generator
	KindDetector              // AI content detector
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindGenerator:
		return "generator"
	case KindDetector:
		return "detector"
	default:
		return "unknown"
	}
}

// Agent is one participant in the network. Kind and Node never change
// after creation; all other state is kind-specific.
type Agent interface {
	ID() ID
	Kind() Kind
	Node() int64
	// State returns a short label of the agent's current state machine state.
	State() string
	// Step runs the agent's transition once for the current round.
	Step(env Env) Note
}

// Rand is the subset of *math/rand.Rand the state machines draw from.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Rates are the model-wide probabilities the state machines consult.
type Rates struct {
	Generation float64 // Chance an active generator attempts an exposure (scaled by effectiveness)
	Detection  float64 // Chance a detector inspects a neighbor node
	Accuracy   float64 // Chance a detector labels an exposed user it inspects
	Spread     float64 // Chance an exposed, unlabeled user passes content on
}

// Env is the model context handed to every transition. The model owns the
// random source and registry; agents only reach them through Env.
type Env interface {
	Rand() Rand
	Rates() Rates
	Neighbors(node int64) []int64
	AgentsAt(node int64) []Agent
	RecordBattle(detector, generator ID, outcome Outcome)
}

// Outcome is the result of a detector engaging a generator.
type Outcome string

const (
	OutcomeGeneratorEvaded Outcome = "generator_evaded"
	OutcomeDetectorHit     Outcome = "detector_hit"
	OutcomeDetectorWin     Outcome = "detector_win"
)

// Note categories.
const (
	CategoryExposure = "exposure"
	CategoryLabel    = "label"
	CategoryBattle   = "battle"
)

// Note describes a notable side effect of a transition. The zero Note
// means nothing happened.
type Note struct {
	Category string
	Text     string
}

// Empty reports whether the note carries nothing.
func (n Note) Empty() bool {
	return n.Category == ""
}

type base struct {
	id   ID
	node int64
}

func (b base) ID() ID      { return b.id }
func (b base) Node() int64 { return b.node }

// pickNeighbor chooses one neighbor of node uniformly. Isolated nodes yield
// false without consuming a draw.
func pickNeighbor(env Env, node int64) (int64, bool) {
	neighbors := env.Neighbors(node)
	if len(neighbors) == 0 {
		return 0, false
	}
	return neighbors[env.Rand().Intn(len(neighbors))], true
}

// exposeFirst exposes the first unexposed user at node.
func exposeFirst(env Env, node int64) (*User, bool) {
	for _, a := range env.AgentsAt(node) {
		if u, ok := a.(*User); ok && u.Expose() {
			return u, true
		}
	}
	return nil, false
}
