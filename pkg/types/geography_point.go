package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/neighbridge/neighbridge-backend/pkg/geo"
)

// SRID of WGS84, the only reference system the geom columns use.
const SRID = 4326

const (
	wkbPointType = 1
	ewkbSRIDFlag = 0x20000000
)

var errNotPoint = errors.New("geography: value is not a point")

// GeographyPoint binds a coordinate to a PostGIS geography(Point, 4326) parameter.
type GeographyPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func PointFrom(c geo.Coordinate) GeographyPoint {
	return GeographyPoint{Lat: c.Latitude, Lng: c.Longitude}
}

func (g GeographyPoint) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: g.Lat, Longitude: g.Lng}
}

// Value renders EWKT with longitude first, as PostGIS expects.
func (g GeographyPoint) Value() (driver.Value, error) {
	if err := g.Coordinate().Validate(); err != nil {
		return nil, fmt.Errorf("geography: %w", err)
	}
	return "SRID=4326;POINT(" + formatDegrees(g.Lng) + " " + formatDegrees(g.Lat) + ")", nil
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Scan reads EWKT, hex EWKB (the text output of a geography column) or binary WKB.
func (g *GeographyPoint) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*g = GeographyPoint{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("geography: cannot scan %T", src)
	}

	if len(raw) > 0 && (raw[0] == 0 || raw[0] == 1) {
		return g.decodeWKB(raw)
	}
	text := string(bytes.TrimSpace(raw))
	if decoded, err := hex.DecodeString(text); err == nil {
		return g.decodeWKB(decoded)
	}
	return g.decodeWKT(text)
}

func (g *GeographyPoint) decodeWKT(text string) error {
	if head, rest, ok := strings.Cut(text, ";"); ok {
		if srid := strings.TrimPrefix(strings.ToUpper(head), "SRID="); srid != strconv.Itoa(SRID) {
			return fmt.Errorf("geography: unsupported %s", head)
		}
		text = rest
	}
	body, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(text)), "POINT")
	if !ok {
		return errNotPoint
	}
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return errNotPoint
	}
	parts := strings.Fields(body[1 : len(body)-1])
	if len(parts) != 2 {
		return fmt.Errorf("geography: point needs two ordinates, got %d", len(parts))
	}
	lng, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return fmt.Errorf("geography: longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return fmt.Errorf("geography: latitude: %w", err)
	}
	g.Lng, g.Lat = lng, lat
	return nil
}

func (g *GeographyPoint) decodeWKB(raw []byte) error {
	if len(raw) < 5 {
		return errors.New("geography: truncated wkb")
	}
	var order binary.ByteOrder = binary.LittleEndian
	if raw[0] == 0 {
		order = binary.BigEndian
	}
	kind, body := order.Uint32(raw[1:5]), raw[5:]
	if kind&ewkbSRIDFlag != 0 {
		if len(body) < 4 {
			return errors.New("geography: truncated wkb")
		}
		kind &^= ewkbSRIDFlag
		body = body[4:]
	}
	if kind != wkbPointType {
		return errNotPoint
	}
	if len(body) < 16 {
		return errors.New("geography: truncated wkb")
	}
	g.Lng = math.Float64frombits(order.Uint64(body[:8]))
	g.Lat = math.Float64frombits(order.Uint64(body[8:16]))
	return nil
}
