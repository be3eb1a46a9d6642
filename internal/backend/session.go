package backend

import (
	"context"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the token pair issued by the auth service for a signed-in user.
type Session struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Expiry returns the instant the access token stops being valid.
func (s *Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the access token expires before now+margin.
func (s *Session) ExpiresWithin(margin time.Duration, now time.Time) bool {
	return !now.Add(margin).Before(s.Expiry())
}

// UserID returns the id of the session's user or "".
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

// normalize fills ExpiresAt from expires_in, or from the token's exp claim
// when the service sent neither.
func (s *Session) normalize(now time.Time) {
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}
	if s.ExpiresAt != 0 {
		return
	}
	if s.ExpiresIn > 0 {
		s.ExpiresAt = now.Unix() + s.ExpiresIn
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.ExpiresAt = exp.Unix()
		}
	}
}

// Event names an auth-state transition.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives auth-state changes. Session is nil for EventSignedOut.
type Listener func(ctx context.Context, event Event, session *Session)
