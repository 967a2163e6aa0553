package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
)

var (
	// ErrInvalidToken wraps every validation failure
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

var signingMethod = jwt.SigningMethodHS256

// Service issues and validates the bearer tokens of the flood API
type Service struct {
	config api_models.TokenConfig
	now    func() time.Time
}

func NewService(config api_models.TokenConfig) *Service {
	return &Service{config: config, now: time.Now}
}

func (s *Service) claimsFor(userID, role string, issuedAt time.Time) api_models.AccessClaims {
	return api_models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenDuration)),
		},
		UserID: userID,
		Role:   role,
	}
}

// GenerateToken signs an access token carrying the user's id and role
func (s *Service) GenerateToken(userID, role string) (*api_models.IssuedToken, error) {
	if s.config.SecretKey == "" {
		return nil, ErrMissingSecret
	}
	claims := s.claimsFor(userID, role, s.now())

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &api_models.IssuedToken{
		AccessToken: signed,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Unix(),
	}, nil
}

func (s *Service) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != signingMethod.Alg() {
		return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
	}
	return []byte(s.config.SecretKey), nil
}

func (s *Service) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	return opts
}

// ValidateAccessToken checks signature, issuer and expiry and returns the
// claims. Failures wrap ErrInvalidToken.
func (s *Service) ValidateAccessToken(tokenString string) (*api_models.AccessClaims, error) {
	if s.config.SecretKey == "" {
		return nil, ErrMissingSecret
	}
	claims := &api_models.AccessClaims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, s.parserOptions()...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}
