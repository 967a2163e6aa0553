package fldmodels

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is a WGS84 coordinate pair in decimal degrees
type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Device represents a sensor station bound to one ThingSpeak channel
type Device struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name                string             `bson:"name" json:"name"`
	ThingSpeakChannelID string             `bson:"thingSpeakChannelId" json:"thingSpeakChannelId"`
	Location            Location           `bson:"location" json:"location"`
}

// HexID returns the device identifier as used in URLs and payloads
func (d Device) HexID() string {
	return d.ID.Hex()
}
