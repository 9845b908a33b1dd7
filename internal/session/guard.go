package session

// Decision is the route guard's verdict for a navigation attempt.
type Decision int

const (
	// DecisionDefer means session state is still resolving; render a
	// neutral placeholder, never a redirect.
	DecisionDefer Decision = iota
	// DecisionRedirect means the session is unauthenticated; send the
	// client to the login entry point, replacing history.
	DecisionRedirect
	// DecisionAllow means the session is authenticated; render the
	// requested subtree.
	DecisionAllow
)

// String returns the decision name for logs and metrics labels.
func (d Decision) String() string {
	switch d {
	case DecisionDefer:
		return "defer"
	case DecisionRedirect:
		return "redirect"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide is the route guard: a pure function over session state.
//
// While the state is loading the guard must not conclude either way; a
// premature redirect here is the login-flash bug. Only a settled state
// with no identity redirects.
func Decide(state State) Decision {
	if state.Loading {
		return DecisionDefer
	}
	if state.Identity == nil {
		return DecisionRedirect
	}
	return DecisionAllow
}
