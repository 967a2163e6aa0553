package jwt

import (
	"errors"
	"testing"
	"time"

	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
)

func newTestService() *Service {
	return NewService(api_models.TokenConfig{
		SecretKey:           "test-secret",
		AccessTokenDuration: time.Hour,
		Issuer:              "flood-api",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	s := newTestService()

	pair, err := s.GenerateToken("64b7f0c2a1b2c3d4e5f60718", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := s.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "64b7f0c2a1b2c3d4e5f60718" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID != pair.TokenID {
		t.Fatalf("expected token id %s, got %s", pair.TokenID, claims.ID)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newTestService()
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	pair, err := s.GenerateToken("u1", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	s.now = time.Now
	if _, err := s.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	pair, err := newTestService().GenerateToken("u1", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	other := NewService(api_models.TokenConfig{SecretKey: "other", AccessTokenDuration: time.Hour, Issuer: "flood-api"})
	if _, err := other.ValidateAccessToken(pair.AccessToken); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestWrongIssuerRejected(t *testing.T) {
	pair, err := newTestService().GenerateToken("u1", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	other := NewService(api_models.TokenConfig{SecretKey: "test-secret", AccessTokenDuration: time.Hour, Issuer: "someone-else"})
	if _, err := other.ValidateAccessToken(pair.AccessToken); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestGarbageRejected(t *testing.T) {
	if _, err := newTestService().ValidateAccessToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMissingSecret(t *testing.T) {
	s := NewService(api_models.TokenConfig{AccessTokenDuration: time.Hour})
	if _, err := s.GenerateToken("u1", "user"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret on generate, got %v", err)
	}
	if _, err := s.ValidateAccessToken("a.b.c"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret on validate, got %v", err)
	}
}

func TestTokenCarriesExpiry(t *testing.T) {
	s := newTestService()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	pair, err := s.GenerateToken("u1", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if want := fixed.Add(time.Hour).Unix(); pair.ExpiresAt != want {
		t.Fatalf("expected expiry %d, got %d", want, pair.ExpiresAt)
	}
	claims, err := s.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "u1" || claims.ID != pair.TokenID {
		t.Fatalf("unexpected registered claims %+v", claims.RegisteredClaims)
	}
}
