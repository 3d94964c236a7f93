package domain

import "fmt"

// AuthState is the lifecycle state of a client session as the backend
// tracks it: every session starts loading, resolves to authenticated or
// anonymous, and an authenticated session can only be signed out.
type AuthState string

const (
	AuthLoading       AuthState = "loading"
	AuthAuthenticated AuthState = "authenticated"
	AuthAnonymous     AuthState = "anonymous"
	AuthSignedOut     AuthState = "signed_out"
)

var authTransitions = map[AuthState][]AuthState{
	AuthLoading:       {AuthAuthenticated, AuthAnonymous},
	AuthAuthenticated: {AuthSignedOut},
	AuthAnonymous:     {},
	AuthSignedOut:     {},
}

// Transition returns the next state, or an error when the transition is
// not part of the state machine
func (s AuthState) Transition(next AuthState) (AuthState, error) {
	for _, allowed := range authTransitions[s] {
		if allowed == next {
			return next, nil
		}
	}
	return s, fmt.Errorf("invalid auth transition %s -> %s", s, next)
}

// Terminal reports whether no further transitions are possible
func (s AuthState) Terminal() bool {
	return len(authTransitions[s]) == 0
}
