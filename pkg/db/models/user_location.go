package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/geo"
)

// UserLocation is the single stored location of a user. A missing row or a
// missing coordinate pair both mean "unset".
type UserLocation struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Latitude  *float64  `gorm:"column:latitude"`
	Longitude *float64  `gorm:"column:longitude"`
	Address   string    `gorm:"column:address;not null;default:''"`
	City      string    `gorm:"column:city;not null;default:''"`
	State     string    `gorm:"column:state;not null;default:''"`
	Country   string    `gorm:"column:country;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserLocation) TableName() string { return "user_locations" }

// Coordinate returns the stored point and whether it is usable.
func (u UserLocation) Coordinate() (geo.Coordinate, bool) {
	if u.Latitude == nil || u.Longitude == nil {
		return geo.Coordinate{}, false
	}
	c := geo.Coordinate{Latitude: *u.Latitude, Longitude: *u.Longitude}
	return c, c.IsValid()
}
