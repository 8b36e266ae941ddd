package geo

import (
	"math"
	"testing"
)

func TestDistanceMetersZeroForIdenticalPoints(t *testing.T) {
	p := Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	if got := DistanceMeters(p, p); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	a := Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	b := Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	if DistanceMeters(a, b) != DistanceMeters(b, a) {
		t.Fatalf("distance is not symmetric")
	}
}

func TestDistanceMetersKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Coordinate
		want float64
		tol  float64
	}{
		{
			name: "one degree latitude",
			a:    Coordinate{Latitude: 0, Longitude: 0},
			b:    Coordinate{Latitude: 1, Longitude: 0},
			want: 111195,
			tol:  1,
		},
		{
			name: "new york to london",
			a:    Coordinate{Latitude: 40.7128, Longitude: -74.0060},
			b:    Coordinate{Latitude: 51.5074, Longitude: -0.1278},
			want: 5570000,
			tol:  5000,
		},
		{
			name: "antipodal",
			a:    Coordinate{Latitude: 0, Longitude: 0},
			b:    Coordinate{Latitude: 0, Longitude: 180},
			want: math.Pi * EarthRadiusMeters,
			tol:  1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceMeters(tc.a, tc.b)
			if math.Abs(got-tc.want) > tc.tol {
				t.Fatalf("expected %v +/- %v, got %v", tc.want, tc.tol, got)
			}
		})
	}
}

func TestWithinBoundary(t *testing.T) {
	center := Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	point := Coordinate{Latitude: 40.7218, Longitude: -74.0060}
	d := DistanceMeters(center, point)

	if _, ok := Within(center, point, d); !ok {
		t.Fatalf("expected point at exactly radius to be inside")
	}
	if _, ok := Within(center, point, d-1); ok {
		t.Fatalf("expected point beyond radius to be outside")
	}
}

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Coordinate
		wantErr bool
	}{
		{name: "valid", c: Coordinate{Latitude: 12.5, Longitude: 77.6}},
		{name: "poles", c: Coordinate{Latitude: -90, Longitude: 180}},
		{name: "lat too high", c: Coordinate{Latitude: 91, Longitude: 0}, wantErr: true},
		{name: "lng too low", c: Coordinate{Latitude: 0, Longitude: -181}, wantErr: true},
		{name: "nan", c: Coordinate{Latitude: math.NaN(), Longitude: 0}, wantErr: true},
		{name: "inf", c: Coordinate{Latitude: 0, Longitude: math.Inf(1)}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestBoundingBoxContainsCircle(t *testing.T) {
	center := Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	box := BoundingBox(center, 10000)

	for _, bearing := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		p := destination(center, bearing, 9999)
		if !box.Contains(p) {
			t.Fatalf("bearing %v: point %v outside box %+v", bearing, p, box)
		}
	}
	if box.Contains(Coordinate{Latitude: 41.0, Longitude: -74.0060}) {
		t.Fatalf("expected far point outside box")
	}
}

func TestBoundingBoxNearPoleAndAntimeridian(t *testing.T) {
	polar := BoundingBox(Coordinate{Latitude: 89.99, Longitude: 10}, 5000)
	if polar.MinLng != MinLongitude || polar.MaxLng != MaxLongitude || polar.MaxLat != MaxLatitude {
		t.Fatalf("expected full longitude span near pole, got %+v", polar)
	}

	dateline := BoundingBox(Coordinate{Latitude: 0, Longitude: 179.99}, 5000)
	if dateline.MinLng != MinLongitude || dateline.MaxLng != MaxLongitude {
		t.Fatalf("expected full longitude span across antimeridian, got %+v", dateline)
	}
}

func destination(origin Coordinate, bearingDeg, meters float64) Coordinate {
	lat1 := toRadians(origin.Latitude)
	lng1 := toRadians(origin.Longitude)
	brng := toRadians(bearingDeg)
	ang := meters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brng))
	lng2 := lng1 + math.Atan2(math.Sin(brng)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))
	return Coordinate{Latitude: lat2 * 180 / math.Pi, Longitude: lng2 * 180 / math.Pi}
}
