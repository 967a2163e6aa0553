package fldmodels

import "time"

// AlertEvent records the outcome of one alert cycle that fired.
// It is published to the broker and never persisted.
type AlertEvent struct {
	CycleID      string    `json:"cycle_id"`
	DeviceID     string    `json:"device_id"`
	DeviceName   string    `json:"device_name"`
	ChannelID    string    `json:"channel_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Indicator    string    `json:"indicator"`
	Reason       string    `json:"reason"`
	Message      string    `json:"message"`
	UsersMatched int       `json:"users_matched"`
	Dispatched   int       `json:"dispatched"`
	Failed       int       `json:"failed"`
	TriggeredAt  time.Time `json:"triggered_at"`
}
