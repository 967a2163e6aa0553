package alerting

import (
	"context"

	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
)

// Channel delivers an alert message to one recipient
type Channel interface {
	// Name labels the channel in logs and metrics
	Name() string
	// Recipient returns the user's address on this channel, false when the user has none
	Recipient(user *auth_models.User) (string, bool)
	Send(ctx context.Context, to, message string) error
}
