package validators

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
)

type number interface {
	~int | ~float64
}

// queryNumber reads key from the query string. Absent or blank values yield def.
func queryNumber[T number](r *http.Request, key string, def, min, max T, parse func(string) (T, error)) (T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	value, err := parse(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a number", key).
			WithDetails(map[string]string{key: "must be a number"})
	}
	if value < min || value > max {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is out of range", key).
			WithDetails(map[string]string{key: fmt.Sprintf("must be between %v and %v", min, max)})
	}
	return value, nil
}

func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	return queryNumber(r, key, def, min, max, strconv.Atoi)
}

// ParseQueryFloat rejects NaN and infinities along with non-numeric input.
func ParseQueryFloat(r *http.Request, key string, def, min, max float64) (float64, error) {
	return queryNumber(r, key, def, min, max, func(raw string) (float64, error) {
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = strconv.ErrRange
		}
		return v, err
	})
}

// ParseQueryCoordinate reads an optional lat/lng pair; nil means neither was sent.
func ParseQueryCoordinate(r *http.Request, latKey, lngKey string) (*geo.Coordinate, error) {
	q := r.URL.Query()
	hasLat := strings.TrimSpace(q.Get(latKey)) != ""
	hasLng := strings.TrimSpace(q.Get(lngKey)) != ""
	if !hasLat && !hasLng {
		return nil, nil
	}
	if hasLat != hasLng {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s and %s must be supplied together", latKey, lngKey)
	}
	lat, err := ParseQueryFloat(r, latKey, 0, geo.MinLatitude, geo.MaxLatitude)
	if err != nil {
		return nil, err
	}
	lng, err := ParseQueryFloat(r, lngKey, 0, geo.MinLongitude, geo.MaxLongitude)
	if err != nil {
		return nil, err
	}
	return &geo.Coordinate{Latitude: lat, Longitude: lng}, nil
}
