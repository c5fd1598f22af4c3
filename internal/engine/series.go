package engine

import "fmt"

// Sample is one row of the metrics time series.
type Sample struct {
	Step   int   `json:"step"`
	Values []int `json:"values"`
}

// Series is an append-only time series of named integer counts, one sample
// per step.
type Series struct {
	names   []string
	samples []Sample
}

// NewSeries creates an empty series with the given column names.
func NewSeries(names ...string) *Series {
	return &Series{names: append([]string(nil), names...)}
}

// Names returns the column names in order.
func (s *Series) Names() []string {
	return append([]string(nil), s.names...)
}

// Append records the values for step. Values must match the column count.
func (s *Series) Append(step int, values ...int) {
	if len(values) != len(s.names) {
		panic(fmt.Sprintf("series: %d values for %d columns", len(values), len(s.names)))
	}
	s.samples = append(s.samples, Sample{Step: step, Values: append([]int(nil), values...)})
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.samples)
}

// Samples returns a copy of every sample in step order.
func (s *Series) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	for i, sm := range s.samples {
		out[i] = Sample{Step: sm.Step, Values: append([]int(nil), sm.Values...)}
	}
	return out
}

// Last returns the most recent sample.
func (s *Series) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	last := s.samples[len(s.samples)-1]
	return Sample{Step: last.Step, Values: append([]int(nil), last.Values...)}, true
}

// Column returns the values of one named column across all samples.
func (s *Series) Column(name string) ([]int, bool) {
	idx := s.index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]int, len(s.samples))
	for i, sm := range s.samples {
		out[i] = sm.Values[idx]
	}
	return out, true
}

// Latest returns the most recent sample keyed by column name.
func (s *Series) Latest() map[string]int {
	out := make(map[string]int, len(s.names))
	last, ok := s.Last()
	if !ok {
		return out
	}
	for i, name := range s.names {
		out[name] = last.Values[i]
	}
	return out
}

func (s *Series) index(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	return -1
}
