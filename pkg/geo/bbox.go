package geo

import "math"

// Box is an axis-aligned lat/lng rectangle. It is a conservative prefilter:
// every point within the source radius is inside the box, not the reverse.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoundingBox returns the box enclosing the circle of radiusMeters around center.
func BoundingBox(center Coordinate, radiusMeters float64) Box {
	if radiusMeters < 0 {
		radiusMeters = 0
	}
	angular := radiusMeters / EarthRadiusMeters
	latDelta := angular * 180 / math.Pi

	box := Box{
		MinLat: center.Latitude - latDelta,
		MaxLat: center.Latitude + latDelta,
		MinLng: MinLongitude,
		MaxLng: MaxLongitude,
	}

	if box.MinLat <= MinLatitude || box.MaxLat >= MaxLatitude {
		box.MinLat = math.Max(box.MinLat, MinLatitude)
		box.MaxLat = math.Min(box.MaxLat, MaxLatitude)
		return box
	}

	cosLat := math.Cos(toRadians(center.Latitude))
	ratio := math.Sin(angular) / cosLat
	if ratio >= 1 {
		return box
	}
	lngDelta := math.Asin(ratio) * 180 / math.Pi
	minLng := center.Longitude - lngDelta
	maxLng := center.Longitude + lngDelta
	if minLng < MinLongitude || maxLng > MaxLongitude {
		return box
	}
	box.MinLng = minLng
	box.MaxLng = maxLng
	return box
}

// Contains reports whether c is inside the box.
func (b Box) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLng && c.Longitude <= b.MaxLng
}
