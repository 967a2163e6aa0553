// Package geo computes great-circle distances on a spherical Earth.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm
const EarthRadiusKm = 6371.0

// boundaryEpsilonKm absorbs float error at the radius boundary
const boundaryEpsilonKm = 1e-9

// DistanceKm returns the haversine distance between two points in km
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// clamp so rounding never pushes sqrt outside [0,1]
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinRadius reports whether the two points are at most radiusKm apart
func WithinRadius(lat1, lon1, lat2, lon2, radiusKm float64) bool {
	return DistanceKm(lat1, lon1, lat2, lon2) <= radiusKm+boundaryEpsilonKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
