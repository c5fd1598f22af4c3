package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Engine drives a model forward on a timer for live display. The model
// itself is single-threaded; Engine serializes every access to it behind one
// mutex so readers (the HTTP API) never observe a half-finished round.
type Engine struct {
	Interval time.Duration // Base step interval at speed 1

	// Callbacks run after every step and once when the model stops, with the
	// engine lock held.
	OnStep func(m Model, took time.Duration)
	OnStop func(m Model)

	mu      sync.Mutex
	model   Model
	speed   float64
	running bool
}

// NewEngine creates an engine for m with a one second interval at speed 1.
func NewEngine(m Model) *Engine {
	return &Engine{
		Interval: time.Second,
		model:    m,
		speed:    1.0,
	}
}

// Run steps the model until ctx is cancelled. Once the model stops, or while
// paused, the loop idles so a replaced model can pick up where it left off.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("simulation engine started", "speed", e.Speed())

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		slog.Info("simulation engine stopped")
	}()

	for {
		speed := e.Speed()
		wait := 100 * time.Millisecond
		if speed > 0 {
			start := time.Now()
			err := e.StepOnce()
			if err == nil {
				target := time.Duration(float64(e.Interval) / speed)
				wait = target - time.Since(start)
			} else if !errors.Is(err, ErrNotRunning) {
				slog.Error("step failed", "error", err)
			}
		}

		if wait <= 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// StepOnce advances the model by one round.
func (e *Engine) StepOnce() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	if err := e.model.Step(); err != nil {
		return err
	}
	if e.OnStep != nil {
		e.OnStep(e.model, time.Since(start))
	}
	if !e.model.Running() && e.OnStop != nil {
		e.OnStop(e.model)
	}
	return nil
}

// View runs fn with exclusive access to the current model.
func (e *Engine) View(fn func(m Model)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.model)
}

// Replace swaps in a new model, returning the previous one.
func (e *Engine) Replace(m Model) Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.model
	e.model = m
	return old
}

// Speed returns the speed multiplier: 1 is one step per Interval, 0 pauses.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Negative values pause.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// Looping reports whether Run is active.
func (e *Engine) Looping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Drive steps m until it stops, limit steps have run (limit <= 0 means no
// limit) or ctx is cancelled. It returns the number of steps executed.
func Drive(ctx context.Context, m Model, limit int) (int, error) {
	n := 0
	for m.Running() && (limit <= 0 || n < limit) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := m.Step(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
