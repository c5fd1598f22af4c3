package telemetry

import (
	"time"

	"github.com/talgya/deepfake-battle/internal/engine"
)

// ObserveModel mirrors the model's latest sample and running state.
func (r *Registry) ObserveModel(m engine.Model) {
	name := m.Name()
	for col, v := range m.Series().Latest() {
		r.SeriesValue.WithLabelValues(name, col).Set(float64(v))
	}
	if m.Running() {
		r.Running.WithLabelValues(name).Set(1)
	} else {
		r.Running.WithLabelValues(name).Set(0)
	}

	bl, ok := m.(engine.BattleLog)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastModel != m {
		r.lastModel = m
		r.seenBattles = 0
	}
	battles := bl.Battles()
	for _, b := range battles[min(r.seenBattles, len(battles)):] {
		r.BattlesTotal.WithLabelValues(string(b.Outcome)).Inc()
	}
	r.seenBattles = len(battles)
}

// RecordStep counts one executed step and refreshes the model gauges.
func (r *Registry) RecordStep(m engine.Model, duration time.Duration) {
	r.StepsTotal.WithLabelValues(m.Name()).Inc()
	r.StepDuration.WithLabelValues(m.Name()).Observe(duration.Seconds())
	r.ObserveModel(m)
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
