package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked"))
	require.NoError(t, err)
	return tok
}

func TestInsecureVerifier_Claims(t *testing.T) {
	raw := unsignedToken(t, jwt.MapClaims{"sub": "user-1", "email": "a@b.c", "exp": time.Now().Add(time.Hour).Unix()})

	tok, err := NewInsecureVerifier().Verify(context.Background(), raw)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "a@b.c", claims["email"])
}

func TestInsecureVerifier_RejectsExpiredAndMalformed(t *testing.T) {
	v := NewInsecureVerifier()
	expired := unsignedToken(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err := v.Verify(context.Background(), expired)
	require.Error(t, err)

	_, err = v.Verify(context.Background(), "not-a-jwt")
	require.Error(t, err)
}

func TestNewVerifier_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewVerifier(context.Background(), srv.URL, "")
	require.Error(t, err)
}

func TestNewVerifier_RejectsForeignToken(t *testing.T) {
	var issuer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"issuer":                                issuer,
				"jwks_uri":                              issuer + "/.well-known/jwks.json",
				"authorization_endpoint":                issuer + "/authorize",
				"token_endpoint":                        issuer + "/token",
				"id_token_signing_alg_values_supported": []string{"RS256"},
			})
		case "/auth/v1/.well-known/jwks.json":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"keys": []interface{}{}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	issuer = IssuerURL(srv.URL + "/")
	require.Equal(t, srv.URL+"/auth/v1", issuer)

	v, err := NewVerifier(context.Background(), issuer, DefaultAudience)
	require.NoError(t, err)

	raw := unsignedToken(t, jwt.MapClaims{"iss": issuer, "aud": DefaultAudience, "sub": "u", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = v.Verify(context.Background(), raw)
	require.Error(t, err)
}

func TestSecretVerifier(t *testing.T) {
	signer := tokens.NewSigner("secret-verifier-test-xxxxxxxxxxxxxxxx", "memory")
	raw, _, err := signer.GenerateAccessToken(&models.User{ID: "u1", Email: "a@b.co"}, "s1", time.Minute)
	require.NoError(t, err)

	tok, err := NewSecretVerifier(signer).Verify(context.Background(), raw)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "u1", claims["sub"])

	other := tokens.NewSigner("another-secret-xxxxxxxxxxxxxxxxxxxxxx", "memory")
	_, err = NewSecretVerifier(other).Verify(context.Background(), raw)
	require.Error(t, err)
}
