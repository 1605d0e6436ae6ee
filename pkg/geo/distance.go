// Package geo holds the great-circle math behind radius search.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points given
// in degrees, using the spherical law of cosines. The acos argument is
// clamped to [-1, 1]: for near-identical points rounding can push it
// just past 1 and acos would return NaN.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	deltaLambda := radians(lng2) - radians(lng1)

	cosine := math.Cos(phi1)*math.Cos(phi2)*math.Cos(deltaLambda) +
		math.Sin(phi1)*math.Sin(phi2)

	return EarthRadiusKm * math.Acos(clamp(cosine, -1, 1))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
