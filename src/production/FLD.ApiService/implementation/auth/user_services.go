package auth

import (
	"context"
	"errors"

	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
)

var ErrInvalidRole = errors.New("invalid role")

// UserService provides user management operations
type UserService struct {
	userRepo interfaces.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo interfaces.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*auth_models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetAllUsers retrieves all users
func (s *UserService) GetAllUsers(ctx context.Context) ([]*auth_models.User, error) {
	return s.userRepo.GetAll(ctx)
}

// UpdateProfile applies the non-nil fields of req
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req api_models.UpdateProfileRequest) (*auth_models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	setIfPresent(&user.FirstName, req.FirstName)
	setIfPresent(&user.LastName, req.LastName)
	setIfPresent(&user.PhoneNumber, req.PhoneNumber)
	setIfPresent(&user.DateOfBirth, req.DateOfBirth)
	setIfPresent(&user.Address, req.Address)
	if req.Latitude != nil && req.Longitude != nil {
		user.Latitude = req.Latitude
		user.Longitude = req.Longitude
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserRole updates a user's role
func (s *UserService) UpdateUserRole(ctx context.Context, userID string, newRole string) (*auth_models.User, error) {
	if !auth_models.ValidRole(newRole) {
		return nil, ErrInvalidRole
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = newRole
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser deletes a user from the database
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.userRepo.Delete(ctx, userID)
}

// empty strings keep the stored value
func setIfPresent(dst **string, v *string) {
	if v != nil && *v != "" {
		s := *v
		*dst = &s
	}
}
