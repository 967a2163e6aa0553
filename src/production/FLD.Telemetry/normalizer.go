package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnknownStatus fills textual fields the device left empty
const UnknownStatus = "Unknown"

// Field layout of a flood sensor channel
const (
	FieldWaterLevel     = 1
	FieldRainingStatus  = 2
	FieldTemperature    = 3
	FieldAirPressure    = 4
	FieldWaterfallLevel = 5
)

// Normalize maps one feed entry onto a Reading owned by deviceID.
// Numeric fields that are absent or unparseable stay nil.
func Normalize(deviceID primitive.ObjectID, e thingspeak.FeedEntry) (fldmodels.Reading, error) {
	createdAt, err := ParseTimestamp(e.CreatedAt)
	if err != nil {
		return fldmodels.Reading{}, fmt.Errorf("entry %d: %w", e.EntryID, err)
	}
	return fldmodels.Reading{
		DeviceID:     deviceID,
		EntryID:      e.EntryID,
		CreatedAt:    createdAt,
		Measurements: NormalizeMeasurements(e),
	}, nil
}

// LatestData maps one feed entry onto the broadcast measurement block
func LatestData(e thingspeak.FeedEntry) (fldmodels.LatestData, error) {
	createdAt, err := ParseTimestamp(e.CreatedAt)
	if err != nil {
		return fldmodels.LatestData{}, fmt.Errorf("entry %d: %w", e.EntryID, err)
	}
	return fldmodels.LatestData{
		EntryID:      e.EntryID,
		CreatedAt:    createdAt,
		Measurements: NormalizeMeasurements(e),
	}, nil
}

func NormalizeMeasurements(e thingspeak.FeedEntry) fldmodels.Measurements {
	return fldmodels.Measurements{
		WaterLevel:     ParseOptionalFloat(e.Field(FieldWaterLevel)),
		RainingStatus:  textOrUnknown(e.Field(FieldRainingStatus)),
		Temperature:    ParseOptionalFloat(e.Field(FieldTemperature)),
		AirPressure:    ParseOptionalFloat(e.Field(FieldAirPressure)),
		WaterfallLevel: ParseOptionalFloat(e.Field(FieldWaterfallLevel)),
		Latitude:       ParseOptionalFloat(e.Latitude),
		Longitude:      ParseOptionalFloat(e.Longitude),
		Elevation:      ParseOptionalFloat(e.Elevation),
		Status:         textOrUnknown(e.Status),
	}
}

// ParseTimestamp parses the provider's created_at
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing created_at")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseOptionalFloat returns nil for absent, blank, non-numeric and non-finite values
func ParseOptionalFloat(v thingspeak.FieldValue) *float64 {
	if !v.Valid() {
		return nil
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func textOrUnknown(v thingspeak.FieldValue) string {
	if s := strings.TrimSpace(v.String()); s != "" {
		return s
	}
	return UnknownStatus
}
