package geo

import "math"

const π = math.Pi

// R is the mean earth radius in meters.
const R = 6371e3

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func toRadians(a float64) float64 {
	return a * π / 180.0
}

func toDegrees(a float64) float64 {
	return a * 180.0 / π
}

// Wrap360 normalizes a bearing to [0, 360).
func Wrap360(d float64) float64 {
	if 0.0 <= d && d < 360.0 {
		return d
	}
	d1 := math.Mod(d, 360.0) + 360.0
	return math.Mod(d1, 360.0)
}

// AngleDelta returns the smallest absolute difference between two bearings,
// in [0, 180].
func AngleDelta(a, b float64) float64 {
	d := math.Abs(Wrap360(a) - Wrap360(b))
	if d > 180.0 {
		d = 360.0 - d
	}
	return d
}

// DistanceMeters is the great-circle (haversine) distance between two points.
func DistanceMeters(from, to LatLon) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)
	Δφ := φ2 - φ1

	Δλ := toRadians(to.Lon - from.Lon)

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	δ := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * δ
}

// BearingDegrees is the initial bearing from one point to another, in [0, 360).
func BearingDegrees(from, to LatLon) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)

	Δλ := toRadians(to.Lon - from.Lon)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	y := math.Sin(Δλ) * math.Cos(φ2)
	θ := math.Atan2(y, x)

	return Wrap360(toDegrees(θ))
}

func DistanceAndBearingTo(from, to LatLon) (float64, float64) {
	return DistanceMeters(from, to), BearingDegrees(from, to)
}

// Destination returns the point reached by travelling distance meters from
// the origin along the given initial bearing.
func Destination(from LatLon, bearing float64, distance float64) LatLon {
	φ1 := toRadians(from.Lat)
	λ1 := toRadians(from.Lon)
	θ := toRadians(bearing)
	δ := distance / R

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))

	lon := toDegrees(λ2)
	if lon > 180.0 {
		lon -= 360.0
	}
	if lon < -180.0 {
		lon += 360.0
	}

	return LatLon{Lat: toDegrees(φ2), Lon: lon}
}

// Midpoint is the half-way point of the great circle between two points.
func Midpoint(a, b LatLon) LatLon {
	d, t := DistanceAndBearingTo(a, b)
	return Destination(a, t, d/2)
}

// Finite reports whether both coordinates are finite numbers.
func Finite(p LatLon) bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}
