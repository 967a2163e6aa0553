package api_models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig controls how bearer tokens are signed and validated
type TokenConfig struct {
	SecretKey           string
	AccessTokenDuration time.Duration
	Issuer              string
}

// AccessClaims is the payload of a bearer token. The registered ID claim
// doubles as the token id.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Role   string `json:"role"`
}

// IssuedToken is a signed token with its id and unix expiry
type IssuedToken struct {
	AccessToken string `json:"access_token"`
	TokenID     string `json:"token_id"`
	ExpiresAt   int64  `json:"expires_at"`
}
