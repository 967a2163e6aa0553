package interfaces

import (
	"context"

	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
)

// UserRepository stores accounts. Username and email are unique; ids are
// hex ObjectIDs and malformed ones yield ErrInvalidID.
type UserRepository interface {
	Indexer

	// Create returns ErrDuplicate when the username or email is taken
	Create(ctx context.Context, user *auth_models.User) (*auth_models.User, error)

	GetByID(ctx context.Context, userID string) (*auth_models.User, error)
	GetByUsername(ctx context.Context, username string) (*auth_models.User, error)
	GetByEmail(ctx context.Context, email string) (*auth_models.User, error)
	// GetAll feeds both the admin listing and the proximity scan
	GetAll(ctx context.Context) ([]*auth_models.User, error)
	GetByRole(ctx context.Context, role string) ([]*auth_models.User, error)

	Update(ctx context.Context, user *auth_models.User) error
	Delete(ctx context.Context, userID string) error
}
