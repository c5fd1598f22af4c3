package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/talgya/deepfake-battle/internal/engine"
	"github.com/talgya/deepfake-battle/internal/persistence"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.View(func(m engine.Model) {
		status = map[string]any{
			"model":       m.Name(),
			"seed":        m.Seed(),
			"step":        m.StepCount(),
			"running":     m.Running(),
			"stop_reason": m.StopReason(),
			"latest":      m.Series().Latest(),
			"agents":      len(m.Occupants()),
		}
		if bl, ok := m.(engine.BattleLog); ok {
			status["battles"] = len(bl.Battles())
		}
	})
	status["speed"] = s.Eng.Speed()
	status["looping"] = s.Eng.Looping()
	writeJSON(w, status)
}

// handleSeries returns the metrics series, optionally only samples at or
// after ?since=<step>.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "since must be a non-negative step", http.StatusBadRequest)
			return
		}
		since = n
	}

	var names []string
	var samples []engine.Sample
	s.Eng.View(func(m engine.Model) {
		names = m.Series().Names()
		samples = m.Series().Samples()
	})

	start := 0
	for start < len(samples) && samples[start].Step < since {
		start++
	}
	writeJSON(w, map[string]any{
		"names":   names,
		"samples": samples[start:],
	})
}

func (s *Server) handleBattles(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100, 10000)

	battles := []engine.Battle{}
	s.Eng.View(func(m engine.Model) {
		if bl, ok := m.(engine.BattleLog); ok {
			battles = append(battles, bl.Battles()...)
		}
	})

	start := 0
	if len(battles) > limit {
		start = len(battles) - limit
	}
	writeJSON(w, battles[start:])
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)

	var events []engine.Event
	s.Eng.View(func(m engine.Model) { events = m.Events() })

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	var out map[string]any
	s.Eng.View(func(m engine.Model) {
		topo := m.Topology()
		out = map[string]any{
			"nodes":     topo.Len(),
			"edges":     topo.Edges(),
			"occupants": m.Occupants(),
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.ListRuns(queryLimit(r, 20, 200))
	if err != nil {
		slog.Error("list runs failed", "error", err)
		http.Error(w, "list runs failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	run, err := s.DB.GetRun(id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("load run failed", "run", id, "error", err)
		http.Error(w, "load run failed", http.StatusInternalServerError)
		return
	}
	series, err := s.DB.LoadSeries(id)
	if err != nil {
		slog.Error("load series failed", "run", id, "error", err)
		http.Error(w, "load run failed", http.StatusInternalServerError)
		return
	}
	battles, err := s.DB.LoadBattles(id)
	if err != nil {
		slog.Error("load battles failed", "run", id, "error", err)
		http.Error(w, "load run failed", http.StatusInternalServerError)
		return
	}
	events, err := s.DB.RecentEvents(id, queryLimit(r, 50, 1000))
	if err != nil {
		slog.Error("load events failed", "run", id, "error", err)
		http.Error(w, "load run failed", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []engine.Event{}
	}

	writeJSON(w, map[string]any{
		"run": run,
		"series": map[string]any{
			"names":   series.Names(),
			"samples": series.Samples(),
		},
		"battles": battles,
		"events":  events,
	})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Eng.StepOnce(); err != nil {
		if errors.Is(err, engine.ErrNotRunning) {
			http.Error(w, "simulation not running", http.StatusConflict)
			return
		}
		slog.Error("manual step failed", "error", err)
		http.Error(w, "step failed", http.StatusInternalServerError)
		return
	}

	var msg StepMessage
	s.Eng.View(func(m engine.Model) { msg = NewStepMessage(m) })
	writeJSON(w, msg)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.NewModel == nil {
		http.Error(w, "reset not configured", http.StatusNotImplemented)
		return
	}

	m, err := s.NewModel()
	if err != nil {
		slog.Error("reset failed", "error", err)
		http.Error(w, "reset failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.Eng.Replace(m)
	s.Eng.View(func(cur engine.Model) {
		if s.Metrics != nil {
			s.Metrics.ObserveModel(cur)
		}
		s.Hub.Broadcast(cur)
	})
	slog.Info("simulation reset", "model", m.Name(), "seed", m.Seed())

	writeJSON(w, map[string]any{
		"model":   m.Name(),
		"seed":    m.Seed(),
		"message": "simulation reset",
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var run persistence.Run
	var err error
	s.Eng.View(func(m engine.Model) { run, err = s.DB.SaveRun(m) })
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"run_id":  run.ID,
		"step":    run.Steps,
		"message": "snapshot saved",
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var hello StepMessage
	s.Eng.View(func(m engine.Model) { hello = NewStepMessage(m) })
	s.Hub.Serve(w, r, hello)
}
