package session

// State is the session lifecycle state
type State int

const (
	StateUninitialized State = iota // Start has not completed
	StateLoggedOut
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}
