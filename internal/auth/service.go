package auth

import (
	"context"
	"strings"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
)

// Backend is the part of the hosted client the service calls through to.
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignUp(ctx context.Context, req backend.SignUpRequest) (*backend.SignUpResult, error)
	SignOut(ctx context.Context) error
}

// ProfileSource looks up profiles rows.
type ProfileSource interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

const msgAlreadyRegistered = "This email is already registered"

// Service forwards sign-in, sign-up and sign-out to the backend and maps
// failures onto *Error. It never retries.
type Service struct {
	backend        Backend
	profiles       ProfileSource
	duplicateCheck bool
}

// NewService creates the adapter. With duplicateCheck set, Register first
// looks for a profiles row with the same email.
func NewService(b Backend, profiles ProfileSource, duplicateCheck bool) *Service {
	return &Service{backend: b, profiles: profiles, duplicateCheck: duplicateCheck}
}

func (s *Service) Login(ctx context.Context, email, password string) (*backend.Session, error) {
	sess, err := s.backend.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, Classify(err)
	}
	return sess, nil
}

func (s *Service) Register(ctx context.Context, reg Registration) (*backend.SignUpResult, error) {
	email := strings.TrimSpace(reg.Email)
	if s.duplicateCheck && s.profiles != nil {
		existing, err := s.profiles.ProfileByEmail(ctx, email)
		switch {
		case err != nil:
			logger.Warnf("duplicate-email pre-check failed, continuing with sign-up: %v", err)
		case existing != nil:
			return nil, &Error{Kind: DuplicateEmail, Message: msgAlreadyRegistered}
		}
	}

	res, err := s.backend.SignUp(ctx, backend.SignUpRequest{
		Email:    email,
		Password: reg.Password,
		Data:     reg.Metadata(),
	})
	if err != nil {
		return nil, Classify(err)
	}
	// an existing confirmed address comes back as a user without identities
	if res.User != nil && res.User.Identities != nil && len(res.User.Identities) == 0 {
		return nil, &Error{Kind: DuplicateEmail, Message: msgAlreadyRegistered}
	}
	return res, nil
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.backend.SignOut(ctx); err != nil {
		return Classify(err)
	}
	return nil
}
