package engine

// Shuffler is satisfied by *math/rand.Rand.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Registry holds a model's agents in creation order. Agents are never
// removed.
type Registry[T any] struct {
	items []T
}

// NewRegistry creates a registry holding items in the given order.
func NewRegistry[T any](items ...T) *Registry[T] {
	r := &Registry[T]{items: make([]T, 0, len(items))}
	r.items = append(r.items, items...)
	return r
}

// Add appends an agent. Agents added while Activate is running are first
// visited on the next activation.
func (r *Registry[T]) Add(item T) {
	r.items = append(r.items, item)
}

// Len returns the number of registered agents.
func (r *Registry[T]) Len() int {
	return len(r.items)
}

// All returns the agents in creation order. The slice is shared and must not
// be modified.
func (r *Registry[T]) All() []T {
	return r.items
}

// Activate calls fn once for every agent registered when the call starts,
// in a fresh uniform random order drawn from rng.
func (r *Registry[T]) Activate(rng Shuffler, fn func(T)) {
	order := make([]T, len(r.items))
	copy(order, r.items)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	for _, item := range order {
		fn(item)
	}
}
