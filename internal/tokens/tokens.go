package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Audience is the "aud" claim carried by access tokens of signed-in users.
const Audience = "authenticated"

// Signer issues HS256 access tokens shaped like the hosted auth service's.
type Signer struct {
	secret []byte
	issuer string
}

func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer}
}

// GenerateAccessToken creates a signed JWT access token for the user and
// returns it with its expiry.
func (s *Signer) GenerateAccessToken(u *models.User, sessionID string, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret is empty")
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":           u.ID,
		"email":         u.Email,
		"aud":           Audience,
		"role":          Audience,
		"session_id":    sessionID,
		"user_metadata": u.UserMetadata,
		"iat":           now.Unix(),
		"exp":           exp.Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := jt.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies the signature and expiry of a token issued by this signer.
func (s *Signer) Parse(raw string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}

// GenerateRefreshToken returns an opaque random refresh token.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
