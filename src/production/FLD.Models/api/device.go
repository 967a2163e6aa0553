package api_models

// AddDeviceRequest is the body of POST /api/device/add-device
type AddDeviceRequest struct {
	Name                string   `json:"name"`
	ThingSpeakChannelID string   `json:"thingSpeakChannelId"`
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
}

// LocationRequest carries optional coordinates so absence can be detected
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// UpdateDeviceRequest is the body of PUT /api/device/update-device/:id
type UpdateDeviceRequest struct {
	Name                string           `json:"name"`
	ThingSpeakChannelID string           `json:"thingSpeakChannelId"`
	Location            *LocationRequest `json:"location"`
}
