package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Count int     `validate:"gte=0"`
	Rate  float64 `validate:"gte=0,lte=1"`
	Steps int     `validate:"gt=0"`
	Kind  string  `validate:"oneof=a b"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{name: "valid", in: sample{Count: 1, Rate: 0.5, Steps: 1, Kind: "a"}},
		{name: "negative count", in: sample{Count: -1, Steps: 1, Kind: "a"}, wantErr: "Count: must be at least 0"},
		{name: "rate above one", in: sample{Rate: 1.5, Steps: 1, Kind: "b"}, wantErr: "Rate: must not exceed 1"},
		{name: "rate NaN", in: sample{Rate: math.NaN(), Steps: 1, Kind: "b"}, wantErr: "Rate:"},
		{name: "zero steps", in: sample{Kind: "a"}, wantErr: "Steps: must be greater than 0"},
		{name: "unknown kind", in: sample{Steps: 1, Kind: "c"}, wantErr: "Kind: must be one of [a b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStructJoinsAllFailures(t *testing.T) {
	err := Struct(sample{Count: -1, Rate: 2, Steps: 0, Kind: "z"})
	require.Error(t, err)
	for _, field := range []string{"Count", "Rate", "Steps", "Kind"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestStructNil(t *testing.T) {
	assert.Error(t, Struct(nil))
}
