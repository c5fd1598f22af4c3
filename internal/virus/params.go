package virus

import (
	"fmt"

	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/validation"
)

// Params configures a virus-on-network run.
type Params struct {
	NumNodes            int     `yaml:"num_nodes" json:"num_nodes" validate:"gte=1"`
	AvgNodeDegree       float64 `yaml:"avg_node_degree" json:"avg_node_degree" validate:"gte=0"`
	InitialOutbreakSize int     `yaml:"initial_outbreak_size" json:"initial_outbreak_size" validate:"gte=1"`

	SpreadChance         float64 `yaml:"virus_spread_chance" json:"virus_spread_chance" validate:"gte=0,lte=1"`
	CheckFrequency       float64 `yaml:"virus_check_frequency" json:"virus_check_frequency" validate:"gte=0,lte=1"`
	RecoveryChance       float64 `yaml:"recovery_chance" json:"recovery_chance" validate:"gte=0,lte=1"`
	GainResistanceChance float64 `yaml:"gain_resistance_chance" json:"gain_resistance_chance" validate:"gte=0,lte=1"`

	MaxSteps int    `yaml:"max_steps" json:"max_steps" validate:"gt=0"`
	Seed     *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// DefaultParams mirrors the interactive defaults of the original dashboard.
func DefaultParams() Params {
	return Params{
		NumNodes:             10,
		AvgNodeDegree:        3,
		InitialOutbreakSize:  1,
		SpreadChance:         0.37,
		CheckFrequency:       0.5,
		RecoveryChance:       0.3,
		GainResistanceChance: 0.5,
		MaxSteps:             100,
	}
}

// Validate checks parameter ranges. Failures wrap engine.ErrInvalidParams.
func (p Params) Validate() error {
	if err := validation.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidParams, err)
	}
	if p.InitialOutbreakSize > p.NumNodes {
		return fmt.Errorf("%w: initial outbreak of %d exceeds %d nodes",
			engine.ErrInvalidParams, p.InitialOutbreakSize, p.NumNodes)
	}
	return nil
}

// edgeProbability is the Erdős-Rényi probability giving the requested mean degree.
func (p Params) edgeProbability() float64 {
	prob := p.AvgNodeDegree / float64(p.NumNodes)
	if prob > 1 {
		return 1
	}
	return prob
}
