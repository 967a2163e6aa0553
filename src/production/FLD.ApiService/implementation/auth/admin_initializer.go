package auth

import (
	"context"
	"fmt"

	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"

	"golang.org/x/crypto/bcrypt"
)

// AdminConfig holds admin user configuration
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// AdminInitializer makes sure at least one admin account exists
type AdminInitializer struct {
	userRepo    interfaces.UserRepository
	logger      *logger.Logger
	adminConfig AdminConfig
	hashCost    int
}

func NewAdminInitializer(userRepo interfaces.UserRepository, log *logger.Logger, adminConfig AdminConfig) *AdminInitializer {
	return &AdminInitializer{
		userRepo:    userRepo,
		logger:      log,
		adminConfig: adminConfig,
		hashCost:    bcrypt.DefaultCost,
	}
}

// InitializeAdminUser creates the first admin user if no admin users exist
func (s *AdminInitializer) InitializeAdminUser(ctx context.Context) error {
	adminUsers, err := s.userRepo.GetByRole(ctx, auth_models.RoleAdmin)
	if err != nil {
		return err
	}

	if len(adminUsers) > 0 {
		s.logger.Logger.Info().Int("count", len(adminUsers)).Msg("Admin users already exist, skipping admin user creation")
		return nil
	}

	s.logger.Logger.Info().Msg("No admin users found. Creating first admin user...")

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.adminConfig.Password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	adminUser := auth_models.NewUser(
		s.adminConfig.Username,
		s.adminConfig.Email,
		string(hashedPassword),
		auth_models.RoleAdmin,
	)

	if _, err := s.userRepo.Create(ctx, adminUser); err != nil {
		return err
	}

	s.logger.Logger.Info().Str("username", s.adminConfig.Username).Str("email", s.adminConfig.Email).Msg("Admin user created with configured credentials")
	s.logger.Logger.Warn().Msg("IMPORTANT: Change the admin password after first login for security!")
	return nil
}
