package rules

import "math"

const earthRadiusKM = 6371.0

func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// WithinDistance treats the limit itself as reachable: a candidate exactly at
// maxKM is still eligible.
func WithinDistance(distanceKM float64, maxKM int) bool {
	return distanceKM <= float64(maxKM)
}
