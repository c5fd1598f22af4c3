package agents

import "testing"

// scriptedRand returns queued draws in order and fails the test when a
// transition consumes more draws than scripted.
type scriptedRand struct {
	t      *testing.T
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	r.t.Helper()
	if len(r.floats) == 0 {
		r.t.Fatal("unexpected Float64 draw")
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	r.t.Helper()
	if len(r.ints) == 0 {
		r.t.Fatal("unexpected Intn draw")
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		r.t.Fatalf("scripted Intn %d out of range %d", v, n)
	}
	return v
}

type battle struct {
	detector, generator ID
	outcome             Outcome
}

// fakeEnv is a hand-built network: adjacency lists plus node occupants.
type fakeEnv struct {
	rng       *scriptedRand
	rates     Rates
	adjacency map[int64][]int64
	occupants map[int64][]Agent
	battles   []battle
}

func newFakeEnv(t *testing.T, rates Rates) *fakeEnv {
	return &fakeEnv{
		rng:       &scriptedRand{t: t},
		rates:     rates,
		adjacency: make(map[int64][]int64),
		occupants: make(map[int64][]Agent),
	}
}

func (e *fakeEnv) link(u, v int64) {
	e.adjacency[u] = append(e.adjacency[u], v)
	e.adjacency[v] = append(e.adjacency[v], u)
}

func (e *fakeEnv) put(a Agent) {
	e.occupants[a.Node()] = append(e.occupants[a.Node()], a)
}

func (e *fakeEnv) script(floats []float64, ints []int) {
	e.rng.floats = append(e.rng.floats, floats...)
	e.rng.ints = append(e.rng.ints, ints...)
}

func (e *fakeEnv) drained() bool {
	return len(e.rng.floats) == 0 && len(e.rng.ints) == 0
}

func (e *fakeEnv) Rand() Rand                   { return e.rng }
func (e *fakeEnv) Rates() Rates                 { return e.rates }
func (e *fakeEnv) Neighbors(node int64) []int64 { return e.adjacency[node] }
func (e *fakeEnv) AgentsAt(node int64) []Agent  { return e.occupants[node] }
func (e *fakeEnv) RecordBattle(d, g ID, o Outcome) {
	e.battles = append(e.battles, battle{detector: d, generator: g, outcome: o})
}
