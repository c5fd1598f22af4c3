package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/deepfake-battle/internal/validation"
)

var (
	// ErrInvalidParams wraps every construction-time validation failure.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrNotRunning is returned by Step once the model has terminated.
	ErrNotRunning = errors.New("simulation is not running")
)

// Params configures a misinformation battle run. Validated at construction
// and immutable afterwards.
type Params struct {
	NumUsers      int `yaml:"num_users" json:"num_users" validate:"gte=0"`
	NumGenerators int `yaml:"num_generators" json:"num_generators" validate:"gte=0"`
	NumDetectors  int `yaml:"num_detectors" json:"num_detectors" validate:"gte=0"`

	GenerationRate    float64 `yaml:"generation_rate" json:"generation_rate" validate:"gte=0,lte=1"`
	DetectionRate     float64 `yaml:"detection_rate" json:"detection_rate" validate:"gte=0,lte=1"`
	DetectionAccuracy float64 `yaml:"detection_accuracy" json:"detection_accuracy" validate:"gte=0,lte=1"`
	SpreadRate        float64 `yaml:"spread_rate" json:"spread_rate" validate:"gte=0,lte=1"`

	MaxSteps               int  `yaml:"max_steps" json:"max_steps" validate:"gt=0"`
	AutoStopWhenAllExposed bool `yaml:"auto_stop_when_all_exposed" json:"auto_stop_when_all_exposed"`

	// Seed fixes the random source. Nil draws a seed from crypto/rand.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// DefaultParams returns the parameters of the reference model.
func DefaultParams() Params {
	return Params{
		NumUsers:               30,
		NumGenerators:          3,
		NumDetectors:           5,
		GenerationRate:         0.3,
		DetectionRate:          0.3,
		DetectionAccuracy:      0.8,
		SpreadRate:             0.4,
		MaxSteps:               100,
		AutoStopWhenAllExposed: true,
	}
}

// Validate checks every parameter range.
func (p Params) Validate() error {
	if err := validation.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// NumAgents returns the total population size.
func (p Params) NumAgents() int {
	return p.NumUsers + p.NumGenerators + p.NumDetectors
}
