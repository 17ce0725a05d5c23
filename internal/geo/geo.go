// Package geo provides the great-circle math behind radar scans: an
// exact haversine distance and the rectangular prefilter that bounds
// the candidate set before exact ranking.
package geo

import "math"

const earthRadiusKm = 6371.0

// kmPerDegreeLat is the approximate north-south span of one degree of
// latitude, used to convert a radius into box deltas.
const kmPerDegreeLat = 111.0

// HaversineKm returns the great-circle distance in kilometers between
// two coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox is a rectangular superset of a circular search radius.
// It may include points farther than the radius, never exclude points
// within it.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoxAround builds the prefilter box for a radius (km) around a point.
// The longitude delta divides by cos(lat) clamped to 0.01 so the box
// stays finite near the poles.
func BoxAround(lat, lng, radiusKm float64) BoundingBox {
	dLat := radiusKm / kmPerDegreeLat
	dLng := radiusKm / (kmPerDegreeLat * math.Max(math.Cos(radians(lat)), 0.01))
	return BoundingBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: lng - dLng,
		MaxLng: lng + dLng,
	}
}

// Contains reports whether the point lies strictly inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat > b.MinLat && lat < b.MaxLat && lng > b.MinLng && lng < b.MaxLng
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
