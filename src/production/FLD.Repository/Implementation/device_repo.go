package implementation

import (
	"context"
	"fmt"

	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDeviceRepository struct {
	coll *mongo.Collection
}

func NewMongoDeviceRepository(db *mongo.Database) *MongoDeviceRepository {
	return &MongoDeviceRepository{coll: db.Collection(DevicesCollection)}
}

var _ interfaces.DeviceRepository = (*MongoDeviceRepository)(nil)

// Create device
func (r *MongoDeviceRepository) Create(ctx context.Context, device *fldmodels.Device) (*fldmodels.Device, error) {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	if device.ID.IsZero() {
		device.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, device); err != nil {
		return nil, mapError(err)
	}
	return device, nil
}

// Read devices
func (r *MongoDeviceRepository) GetByID(ctx context.Context, id string) (*fldmodels.Device, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	var device fldmodels.Device
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&device); err != nil {
		return nil, mapError(err)
	}
	return &device, nil
}

// List returns every device in registration order
func (r *MongoDeviceRepository) List(ctx context.Context) ([]fldmodels.Device, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find devices: %w", err)
	}
	defer cur.Close(ctx)

	devices := make([]fldmodels.Device, 0)
	if err := cur.All(ctx, &devices); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	return devices, nil
}

// GetPrimary returns the first registered device, the one monitored for alerts
func (r *MongoDeviceRepository) GetPrimary(ctx context.Context) (*fldmodels.Device, error) {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	var device fldmodels.Device
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := r.coll.FindOne(ctx, bson.M{}, opts).Decode(&device); err != nil {
		return nil, mapError(err)
	}
	return &device, nil
}

// Update device
func (r *MongoDeviceRepository) Update(ctx context.Context, device *fldmodels.Device) (*fldmodels.Device, error) {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":                device.Name,
		"thingSpeakChannelId": device.ThingSpeakChannelID,
		"location":            device.Location,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated fldmodels.Device
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": device.ID}, update, opts).Decode(&updated); err != nil {
		return nil, mapError(err)
	}
	return &updated, nil
}

// Delete device
func (r *MongoDeviceRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *MongoDeviceRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "thingSpeakChannelId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
