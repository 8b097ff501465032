package game

// Role tells a participant whether its state is canonical.
type Role int

const (
	// Authoritative owns the Game and mutates canonical state.
	Authoritative Role = iota
	// Mirror only rebuilds state from broadcasts.
	Mirror
)

func (r Role) String() string {
	switch r {
	case Authoritative:
		return "authoritative"
	case Mirror:
		return "mirror"
	}
	return "unknown"
}
