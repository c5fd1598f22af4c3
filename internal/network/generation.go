package network

import (
	"fmt"
	"math/rand"

	"github.com/talgya/deepfake-battle/internal/validation"
)

// Kinds of generated graphs.
const (
	KindSmallWorld = "small_world"
	KindRandom     = "random"
)

// Spec describes how to generate the social graph for a model run.
type Spec struct {
	Kind            string  `yaml:"kind" json:"kind" validate:"oneof=small_world random"`
	Degree          int     `yaml:"degree" json:"degree" validate:"gte=0"`                            // Watts-Strogatz lattice degree
	Rewire          float64 `yaml:"rewire" json:"rewire" validate:"gte=0,lte=1"`                      // Watts-Strogatz rewiring probability
	EdgeProbability float64 `yaml:"edge_probability" json:"edge_probability" validate:"gte=0,lte=1"` // Erdős-Rényi edge probability
	NodeCapacity    int     `yaml:"node_capacity" json:"node_capacity" validate:"gte=1"`
}

// DefaultSpec returns the small-world graph the misinformation model uses.
func DefaultSpec() Spec {
	return Spec{
		Kind:            KindSmallWorld,
		Degree:          4,
		Rewire:          0.3,
		EdgeProbability: 0.05,
		NodeCapacity:    1,
	}
}

// Validate checks the spec ranges.
func (s Spec) Validate() error {
	return validation.Struct(s)
}

// Generate builds an n-node graph according to the spec.
func (s Spec) Generate(n int, rng *rand.Rand) (*Topology, error) {
	if n < 0 {
		return nil, fmt.Errorf("generate: negative node count %d", n)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	switch s.Kind {
	case KindRandom:
		return Random(n, s.EdgeProbability, rng), nil
	default:
		return SmallWorld(n, s.Degree, s.Rewire, rng), nil
	}
}

// Complete returns the complete graph on n nodes.
func Complete(n int) *Topology {
	b := NewBuilder(n)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			b.Connect(int64(u), int64(v))
		}
	}
	return b.Build()
}

// SmallWorld builds a Watts-Strogatz graph: a ring lattice where each node
// is joined to its k/2 nearest neighbors on either side, after which every
// lattice edge (u, u+j) is rewired to a random endpoint with probability p.
// When k >= n the complete graph is returned.
func SmallWorld(n, k int, p float64, rng *rand.Rand) *Topology {
	if k >= n {
		return Complete(n)
	}
	b := NewBuilder(n)
	half := k / 2
	for j := 1; j <= half; j++ {
		for u := 0; u < n; u++ {
			b.Connect(int64(u), int64((u+j)%n))
		}
	}

	for j := 1; j <= half; j++ {
		for u := 0; u < n; u++ {
			if rng.Float64() >= p {
				continue
			}
			uid, vid := int64(u), int64((u+j)%n)
			w := int64(rng.Intn(n))
			rewire := true
			for w == uid || b.Connected(uid, w) {
				if b.Degree(uid) >= n-1 {
					rewire = false
					break
				}
				w = int64(rng.Intn(n))
			}
			if rewire {
				b.Disconnect(uid, vid)
				b.Connect(uid, w)
			}
		}
	}
	return b.Build()
}

// Random builds an Erdős-Rényi G(n, p) graph.
func Random(n int, p float64, rng *rand.Rand) *Topology {
	b := NewBuilder(n)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			if rng.Float64() < p {
				b.Connect(int64(u), int64(v))
			}
		}
	}
	return b.Build()
}
