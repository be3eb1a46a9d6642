package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
)

// API is the network contract of the hosted auth and data service.
type API interface {
	PasswordGrant(ctx context.Context, email, password string) (*Session, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*Session, error)
	SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error)
	Logout(ctx context.Context, accessToken string) error
	// SelectProfile returns the profiles row where column equals value, or
	// nil when there is none. An empty accessToken queries with the anon key.
	SelectProfile(ctx context.Context, accessToken, column, value string) (*models.Profile, error)
}

// SignUpRequest carries the credentials and user metadata of a new account.
type SignUpRequest struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// SignUpResult holds the created user. Session is nil until the email is
// confirmed, unless the project auto-confirms sign-ups.
type SignUpResult struct {
	User    *models.User
	Session *Session
}

// APIError is a rejection reported by the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
}

// Token exposes the claims of a verified access token.
type Token interface {
	Claims(v interface{}) error
}

// Verifier checks access tokens before a persisted session is trusted.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Storage persists serialized sessions by key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// StorageKey returns the key under which a client persists its session.
func StorageKey(projectRef, clientID string) string {
	key := "sb-" + projectRef + "-auth-token"
	if clientID != "" {
		key += ":" + clientID
	}
	return key
}
