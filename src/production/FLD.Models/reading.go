package fldmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Measurements is the optional measurement set carried by one feed entry.
// A nil pointer means the device did not report the value.
type Measurements struct {
	WaterLevel     *float64 `bson:"waterLevel,omitempty" json:"waterLevel"`
	RainingStatus  string   `bson:"rainingStatus" json:"rainingStatus"`
	Temperature    *float64 `bson:"temperature,omitempty" json:"temperature"`
	AirPressure    *float64 `bson:"airPressure,omitempty" json:"airPressure"`
	WaterfallLevel *float64 `bson:"waterfallLevel,omitempty" json:"waterfallLevel"`
	Latitude       *float64 `bson:"latitude,omitempty" json:"latitude"`
	Longitude      *float64 `bson:"longitude,omitempty" json:"longitude"`
	Elevation      *float64 `bson:"elevation,omitempty" json:"elevation"`
	Status         string   `bson:"status" json:"status"`
}

// Reading is one normalized observation persisted per (device, entry)
type Reading struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	DeviceID  primitive.ObjectID `bson:"deviceId" json:"deviceId"`
	EntryID   int64              `bson:"entryId" json:"entryId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`

	Measurements `bson:",inline"`
}

// LatestData is the measurement block pushed to live subscribers
type LatestData struct {
	EntryID   int64     `json:"entryId"`
	CreatedAt time.Time `json:"createdAt"`

	Measurements
}
