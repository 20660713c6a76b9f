package location

import "math"

// EarthRadiusKm is the Earth radius in kilometers for Haversine.
const EarthRadiusKm = 6371.0

// HaversineKm returns distance in km between two points (lat/lng in degrees).
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	φ1, φ2 := rad(lat1), rad(lat2)
	Δφ := rad(lat2 - lat1)
	Δλ := rad(lng2 - lng1)
	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns the smallest latitude/longitude box containing every
// point within radiusKm of (lat, lng). Meant as a cheap SQL prefilter before
// the exact HaversineKm check.
func BoundingBox(lat, lng, radiusKm float64) Box {
	ang := radiusKm / EarthRadiusKm
	dLat := ang * 180 / math.Pi
	dLng := 180.0
	if c := math.Cos(lat * math.Pi / 180); c > 1e-9 {
		if x := math.Sin(ang) / c; x < 1 {
			dLng = math.Asin(x) * 180 / math.Pi
		}
	}
	return Box{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: lng - dLng,
		MaxLng: lng + dLng,
	}
}
