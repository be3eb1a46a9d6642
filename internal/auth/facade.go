package auth

import (
	"context"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/notify"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
)

const (
	msgUnexpected       = "An unexpected error occurred"
	msgDuplicateAdvice  = "This email is already registered. Please try logging in instead."
	msgVerifyEmail      = "Please check your email to verify your account"
	titleLoginFailed    = "Login failed"
	titleRegisterFailed = "Registration failed"
)

// Facade is what pages use to sign users in and out. Its operations never
// panic or return errors: every failure becomes false plus a notification.
type Facade struct {
	service  *Service
	manager  *Manager
	notifier notify.Notifier
}

func NewFacade(service *Service, manager *Manager, notifier notify.Notifier) *Facade {
	return &Facade{service: service, manager: manager, notifier: notifier}
}

// User returns the signed-in user or nil.
func (f *Facade) User() *UserProfile { return f.manager.View().User() }

// IsAuthenticated reports whether a user profile is available.
func (f *Facade) IsAuthenticated() bool { return f.manager.View().IsAuthenticated() }

// View exposes the session state read-only.
func (f *Facade) View() View { return f.manager.View() }

// Login signs in. On success the user becomes visible through the session
// listener before Login returns.
func (f *Facade) Login(ctx context.Context, email, password string, role Role) (ok bool) {
	defer f.recoverPanic("login", titleLoginFailed, &ok)

	if _, err := f.service.Login(ctx, email, password); err != nil {
		e := Classify(err)
		if e.Kind == NetworkError {
			logger.Errorf("login for %s failed: %v", email, err)
			f.fail("login", "error", titleLoginFailed, msgUnexpected)
			return false
		}
		f.fail("login", "rejected", titleLoginFailed, e.Message)
		return false
	}
	if u := f.User(); u != nil && u.Role != role {
		logger.Debugf("user %s signed in through the %s portal with role %s", u.ID, role, u.Role)
	}
	metrics.AuthOperations.WithLabelValues("login", "success").Inc()
	return true
}

// Register creates an account and asks the user to confirm their email.
func (f *Facade) Register(ctx context.Context, reg Registration) (ok bool) {
	defer f.recoverPanic("register", titleRegisterFailed, &ok)

	if _, err := f.service.Register(ctx, reg); err != nil {
		e := Classify(err)
		switch e.Kind {
		case DuplicateEmail:
			f.fail("register", "rejected", titleRegisterFailed, msgDuplicateAdvice)
		case NetworkError:
			logger.Errorf("registration for %s failed: %v", reg.Email, err)
			f.fail("register", "error", titleRegisterFailed, msgUnexpected)
		default:
			f.fail("register", "rejected", titleRegisterFailed, e.Message)
		}
		return false
	}
	metrics.AuthOperations.WithLabelValues("register", "success").Inc()
	f.notifier.Notify(notify.Success("Registration successful", msgVerifyEmail))
	return true
}

// Logout signs out and clears local state. On failure the state is left as
// it was.
func (f *Facade) Logout(ctx context.Context) {
	var ok bool
	defer f.recoverPanic("logout", "Logout failed", &ok)

	if err := f.service.Logout(ctx); err != nil {
		logger.Errorf("logout failed: %v", err)
		f.fail("logout", "error", "Logout failed", msgUnexpected)
		return
	}
	f.manager.Clear()
	metrics.AuthOperations.WithLabelValues("logout", "success").Inc()
	f.notifier.Notify(notify.Success("Logged out successfully", ""))
}

func (f *Facade) fail(op, outcome, title, description string) {
	metrics.AuthOperations.WithLabelValues(op, outcome).Inc()
	f.notifier.Notify(notify.Failure(title, description))
}

func (f *Facade) recoverPanic(op, title string, ok *bool) {
	if r := recover(); r != nil {
		logger.Errorf("%s panicked: %v", op, r)
		f.fail(op, "error", title, msgUnexpected)
		*ok = false
	}
}
