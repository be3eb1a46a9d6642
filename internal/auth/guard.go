package auth

// GuardState is the outcome of evaluating a protected route.
type GuardState int

const (
	Checking GuardState = iota
	Authorized
	Denied
)

func (s GuardState) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	}
	return "checking"
}

// DefaultLoginPath is where unauthenticated visitors are sent.
const DefaultLoginPath = "/student/login"

// Decision is the guard's verdict. Redirect is set when State is Denied;
// User is the profile that was authorized.
type Decision struct {
	State    GuardState
	Redirect string
	User     *UserProfile
}

// Guard gates role-specific pages.
type Guard struct {
	loginPath string
}

// NewGuard creates a guard that sends unauthenticated visitors to loginPath.
func NewGuard(loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Guard{loginPath: loginPath}
}

// LoginPath returns the configured login path.
func (g *Guard) LoginPath() string { return g.loginPath }

// Check evaluates once ready is closed. While it is open the session state
// is not known yet and the verdict is Checking.
func (g *Guard) Check(ready <-chan struct{}, view View, allowed ...Role) Decision {
	select {
	case <-ready:
		return g.Evaluate(view, allowed...)
	default:
		return Decision{State: Checking}
	}
}

// Evaluate decides access for the current state. With no allowed roles any
// signed-in user is authorized. A user whose role is not allowed is sent to
// their own dashboard.
func (g *Guard) Evaluate(view View, allowed ...Role) Decision {
	if view == nil || !view.IsAuthenticated() {
		return Decision{State: Denied, Redirect: g.loginPath}
	}
	user := view.User()
	if user == nil {
		return Decision{State: Denied, Redirect: g.loginPath}
	}
	if len(allowed) == 0 {
		return Decision{State: Authorized, User: user}
	}
	for _, r := range allowed {
		if user.Role == r {
			return Decision{State: Authorized, User: user}
		}
	}
	return Decision{State: Denied, Redirect: user.Role.DashboardPath()}
}
