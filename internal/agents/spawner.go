// Agent spawning: creates the initial population of users, generators and
// detectors on consecutive network nodes.
package agents

// Spawner creates agents for a model run. Evasion skills are drawn from the
// model's random source so a seed reproduces the population.
type Spawner struct {
	rng    Rand
	nextID ID
}

// NewSpawner creates a spawner drawing from rng, issuing IDs from zero.
func NewSpawner(rng Rand) *Spawner {
	return &Spawner{rng: rng}
}

// Population is the initial agent set grouped by kind.
type Population struct {
	Users      []*User
	Generators []*Generator
	Detectors  []*Detector
}

// All returns every agent in creation order: users, generators, detectors.
func (p Population) All() []Agent {
	out := make([]Agent, 0, len(p.Users)+len(p.Generators)+len(p.Detectors))
	for _, u := range p.Users {
		out = append(out, u)
	}
	for _, g := range p.Generators {
		out = append(out, g)
	}
	for _, d := range p.Detectors {
		out = append(out, d)
	}
	return out
}

// SpawnPopulation creates users, then generators, then detectors. Each agent
// sits on the node equal to its creation index, so the network needs
// users+generators+detectors nodes.
func (s *Spawner) SpawnPopulation(users, generators, detectors int) Population {
	var pop Population
	node := int64(0)
	for i := 0; i < users; i++ {
		pop.Users = append(pop.Users, NewUser(s.issue(), node))
		node++
	}
	for i := 0; i < generators; i++ {
		pop.Generators = append(pop.Generators, NewGenerator(s.issue(), node, s.rng.Float64()*MaxEvasion))
		node++
	}
	for i := 0; i < detectors; i++ {
		pop.Detectors = append(pop.Detectors, NewDetector(s.issue(), node))
		node++
	}
	return pop
}

// PatientZero exposes one uniformly chosen user and returns it, or nil when
// there are no users.
func (s *Spawner) PatientZero(users []*User) *User {
	if len(users) == 0 {
		return nil
	}
	u := users[s.rng.Intn(len(users))]
	u.Expose()
	return u
}

func (s *Spawner) issue() ID {
	id := s.nextID
	s.nextID++
	return id
}
