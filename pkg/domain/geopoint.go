package domain

import (
	"math"

	dErrors "reclaim/pkg/domain-errors"
)

// GeoPoint is a validated geographic coordinate.
// Invariant: Lat ∈ [-90,90], Lng ∈ [-180,180]. Construct via ParseGeoPoint at
// trust boundaries; an invalid point is rejected before any mutation and is
// never stored.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParseGeoPoint validates raw coordinates from external input.
//
// Errors: returns CodeInvalidCoordinate when either component is out of range
// or not a finite number.
func ParseGeoPoint(lat, lng float64) (GeoPoint, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return GeoPoint{}, dErrors.New(dErrors.CodeInvalidCoordinate, "latitude must be within [-90, 90]")
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return GeoPoint{}, dErrors.New(dErrors.CodeInvalidCoordinate, "longitude must be within [-180, 180]")
	}
	return GeoPoint{Lat: lat, Lng: lng}, nil
}

const earthRadiusMeters = 6371008.8

// DistanceMeters returns the great-circle distance between two points using
// the haversine formula. Accurate to well under 0.5% for the radii this
// engine serves, which is enough for ordering and containment checks.
func (p GeoPoint) DistanceMeters(other GeoPoint) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}
