package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/coreos/go-oidc/v3/oidc"
)

// DefaultAudience is the audience of access tokens issued to signed-in users.
const DefaultAudience = "authenticated"

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and verifies tokens for audience.
func NewVerifier(ctx context.Context, issuer, audience string) (*Verifier, error) {
	if audience == "" {
		audience = DefaultAudience
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// IssuerURL returns the auth issuer of a hosted project.
func IssuerURL(projectURL string) string {
	return strings.TrimRight(projectURL, "/") + "/auth/v1"
}

// Verify verifies the raw access token and returns it as a backend.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (backend.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
