package agents

import "fmt"

// User states.
const (
	StateUnexposed = "unexposed"
	StateExposed   = "exposed"
	StateLabeled   = "labeled"
)

// User is a social media user. Labeled implies exposed, and a labeled user
// stays labeled for the rest of the run.
type User struct {
	base
	exposed bool
	labeled bool
}

// NewUser creates an unexposed user on node.
func NewUser(id ID, node int64) *User {
	return &User{base: base{id: id, node: node}}
}

func (u *User) Kind() Kind { return KindUser }

// Exposed reports whether the user has seen generated content.
func (u *User) Exposed() bool { return u.exposed }

// Labeled reports whether the content the user saw has been labeled.
func (u *User) Labeled() bool { return u.labeled }

// State returns unexposed, exposed or labeled.
func (u *User) State() string {
	switch {
	case u.labeled:
		return StateLabeled
	case u.exposed:
		return StateExposed
	default:
		return StateUnexposed
	}
}

// Expose marks the user exposed. Returns false if already exposed.
func (u *User) Expose() bool {
	if u.exposed {
		return false
	}
	u.exposed = true
	return true
}

// Label marks exposed content as AI-generated. Unexposed or already labeled
// users are left unchanged and false is returned.
func (u *User) Label() bool {
	if !u.exposed || u.labeled {
		return false
	}
	u.labeled = true
	return true
}

// Step spreads content to one random neighbor while exposed and unlabeled.
func (u *User) Step(env Env) Note {
	if !u.exposed || u.labeled {
		return Note{}
	}
	if env.Rand().Float64() >= env.Rates().Spread {
		return Note{}
	}
	target, ok := pickNeighbor(env, u.node)
	if !ok {
		return Note{}
	}
	if victim, ok := exposeFirst(env, target); ok {
		return Note{
			Category: CategoryExposure,
			Text:     fmt.Sprintf("user %d was exposed by user %d", victim.id, u.id),
		}
	}
	return Note{}
}
