package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	jwt "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/jwt"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password too short")
	ErrOTPExpired         = errors.New("invalid or expired otp")
	ErrOTPMismatch        = errors.New("incorrect otp")
	ErrOTPDelivery        = errors.New("failed to send otp email")
)

// maxOTPAttempts wrong codes burn the outstanding reset code
const maxOTPAttempts = 5

// Mailer delivers the reset code; alerting.Mailer implements it
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// AuthService aggregates account and password-reset operations
type AuthService struct {
	userRepo    interfaces.UserRepository
	jwtService  *jwt.Service
	mailer      Mailer
	minPassword int
	otpTTL      time.Duration
	hashCost    int
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo interfaces.UserRepository, jwtService *jwt.Service, mailer Mailer, minPassword int, otpTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		jwtService:  jwtService,
		mailer:      mailer,
		minPassword: minPassword,
		otpTTL:      otpTTL,
		hashCost:    bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// Signup registers a regular user and returns a token for it
func (s *AuthService) Signup(ctx context.Context, req api_models.SignupRequest) (*api_models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Password) < s.minPassword {
		return nil, ErrWeakPassword
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	hashed, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := auth_models.NewUser(req.Username, req.Email, hashed, auth_models.RoleUser)
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.PhoneNumber = req.PhoneNumber
	user.DateOfBirth = req.DateOfBirth
	user.Address = req.Address
	user.Street1 = req.Street1
	user.Street2 = req.Street2
	user.City = req.City
	user.Province = req.Province
	user.District = req.District
	user.PostalCode = req.PostalCode
	user.Country = req.Country
	user.Latitude = req.Latitude
	user.Longitude = req.Longitude

	created, err := s.userRepo.Create(ctx, user)
	if errors.Is(err, interfaces.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}

	token, err := s.jwtService.GenerateToken(created.ID.Hex(), created.Role)
	if err != nil {
		return nil, err
	}
	return &api_models.AuthResponse{Token: token.AccessToken}, nil
}

// Signin authenticates by username and password
func (s *AuthService) Signin(ctx context.Context, req api_models.SigninRequest) (*api_models.AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}
	return &api_models.AuthResponse{Token: token.AccessToken, Role: user.Role}, nil
}

// RequestPasswordReset stores a hashed six digit code and mails it to the user
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, interfaces.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	hashed, err := s.HashPassword(code)
	if err != nil {
		return err
	}
	expires := s.now().Add(s.otpTTL)
	user.ResetPasswordOTP = hashed
	user.ResetPasswordExpires = &expires
	user.ResetPasswordTries = 0

	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if s.mailer == nil {
		return ErrOTPDelivery
	}
	if err := s.mailer.Send(ctx, user.Email, "Email Verification", otpHTML(code), "Your OTP code is: "+code); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}
	return nil
}

// ResetPassword checks the code and replaces the password. The code is
// single use.
func (s *AuthService) ResetPassword(ctx context.Context, req api_models.ResetPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, interfaces.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if user.ResetPasswordOTP == "" || user.ResetPasswordExpires == nil || user.ResetPasswordExpires.Before(s.now()) {
		return ErrOTPExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.ResetPasswordOTP), []byte(strings.TrimSpace(req.OTP))); err != nil {
		user.ResetPasswordTries++
		if user.ResetPasswordTries >= maxOTPAttempts {
			clearOTP(user)
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
		return ErrOTPMismatch
	}
	if len(req.NewPassword) < s.minPassword {
		return ErrWeakPassword
	}

	hashed, err := s.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	clearOTP(user)
	return s.userRepo.Update(ctx, user)
}

func clearOTP(user *auth_models.User) {
	user.ResetPasswordOTP = ""
	user.ResetPasswordExpires = nil
	user.ResetPasswordTries = 0
}

// HashPassword hashes a password using bcrypt
func (s *AuthService) HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func otpHTML(code string) string {
	return `<div style="font-family: Arial, sans-serif; background-color: #f4f4f4; text-align: center; padding: 20px;">` +
		`<h1 style="color: #333;">Email Verification</h1>` +
		`<p style="color: #666; font-size: 16px;">Your OTP code is:</p>` +
		`<p style="color: #007BFF; font-size: 24px; font-weight: bold;">` + code + `</p>` +
		`</div>`
}
