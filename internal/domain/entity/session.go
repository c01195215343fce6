package entity

// SessionState is the session controller's lifecycle state.
type SessionState int

const (
	// StateUninitialized is the state before the startup validation sequence runs.
	StateUninitialized SessionState = iota
	// StateValidating is the state while the startup sequence is in flight.
	StateValidating
	// StateAuthenticated means a first-party identity is established.
	StateAuthenticated
	// StateUnauthenticated means validation completed without an identity.
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// SessionSnapshot is an immutable view of the session controller's state,
// consumed by route guards and screens. Derived flags are methods so the
// invariant "authenticated implies user present" cannot be violated by
// setting fields independently.
type SessionSnapshot struct {
	State SessionState
	User  *User
}

// IsLoading reports whether authentication state is still unknown. Guards
// must treat this as "unknown", never as "unauthenticated".
func (s SessionSnapshot) IsLoading() bool {
	return s.State == StateUninitialized || s.State == StateValidating
}

// IsAuthenticated reports whether an identity is established.
func (s SessionSnapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// NeedsProfile reports whether the signed-in account should be prompted to
// complete its profile.
func (s SessionSnapshot) NeedsProfile() bool {
	return s.IsAuthenticated() && s.User.NeedsProfile()
}
