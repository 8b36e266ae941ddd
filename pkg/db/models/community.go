package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
)

// Community is a named geographic circle users can join. On Postgres the
// geom column is generated from center_lat/center_lng and never written here.
type Community struct {
	CommunityID  string                `gorm:"column:community_id;primaryKey"`
	Name         string                `gorm:"column:name;not null"`
	Description  *string               `gorm:"column:description"`
	CreatedBy    uuid.UUID             `gorm:"column:created_by;type:uuid;not null;index:idx_communities_created_by"`
	CenterLat    float64               `gorm:"column:center_lat;not null;index:idx_communities_center,priority:1"`
	CenterLng    float64               `gorm:"column:center_lng;not null;index:idx_communities_center,priority:2"`
	RadiusMeters int                   `gorm:"column:radius_meters;not null"`
	Status       enums.CommunityStatus `gorm:"column:status;type:text;not null;index:idx_communities_status"`
	MemberCount  int                   `gorm:"column:member_count;not null"`
	LocationName string                `gorm:"column:location_name;not null"`
	Address      *string               `gorm:"column:address"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Community) TableName() string { return "communities" }

// Center returns the community center as a coordinate.
func (c Community) Center() geo.Coordinate {
	return geo.Coordinate{Latitude: c.CenterLat, Longitude: c.CenterLng}
}
