package implementation

import (
	"context"
	"errors"
	"time"

	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names shared with existing deployments
const (
	DevicesCollection  = "devices"
	UsersCollection    = "users"
	ReadingsCollection = "thingspeakdatas"
)

const (
	opTimeout    = 5 * time.Second
	queryTimeout = 15 * time.Second
)

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, interfaces.ErrInvalidID
	}
	return oid, nil
}

// mapError translates driver errors into repository sentinels
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return interfaces.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return interfaces.ErrDuplicate
	}
	return err
}
