package fldmodels

const (
	SnapshotErrorNoData      = "No data available"
	SnapshotErrorFetchFailed = "Failed to fetch data"
)

// DeviceSnapshot is one device's entry in a deviceData broadcast.
// Exactly one of LatestData and Error is set.
type DeviceSnapshot struct {
	DeviceID   string      `json:"deviceId"`
	Name       string      `json:"name"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	LatestData *LatestData `json:"latestData"`
	Error      string      `json:"error,omitempty"`
}
