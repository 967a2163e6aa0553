package implementation

import (
	"context"
	"fmt"

	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReadingRepository is an append-only store of normalized readings.
// The unique (deviceId, entryId) index makes re-inserting an entry a no-op
// reported as ErrDuplicate.
type MongoReadingRepository struct {
	coll *mongo.Collection
}

func NewMongoReadingRepository(db *mongo.Database) *MongoReadingRepository {
	return &MongoReadingRepository{coll: db.Collection(ReadingsCollection)}
}

var _ interfaces.ReadingRepository = (*MongoReadingRepository)(nil)

func (r *MongoReadingRepository) InsertOne(ctx context.Context, rd fldmodels.Reading) error {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.coll.InsertOne(ctx, rd)
	return mapError(err)
}

func (r *MongoReadingRepository) ListByDevice(ctx context.Context, deviceID string) ([]fldmodels.Reading, error) {
	oid, err := parseObjectID(deviceID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"deviceId": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}
	defer cur.Close(ctx)

	readings := make([]fldmodels.Reading, 0)
	if err := cur.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	return readings, nil
}

func (r *MongoReadingRepository) Latest(ctx context.Context, deviceID string) (*fldmodels.Reading, error) {
	oid, err := parseObjectID(deviceID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	var rd fldmodels.Reading
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "entryId", Value: -1}})
	if err := r.coll.FindOne(ctx, bson.M{"deviceId": oid}, opts).Decode(&rd); err != nil {
		return nil, mapError(err)
	}
	return &rd, nil
}

func (r *MongoReadingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "deviceId", Value: 1}, {Key: "entryId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}
