package communities

import (
	"time"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/internal/memberships"
	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/pagination"
)

// LocationDTO is the display location of a community.
type LocationDTO struct {
	Coordinates  geo.Coordinate `json:"coordinates"`
	LocationName string         `json:"locationName"`
	Address      *string        `json:"address,omitempty"`
}

// CommunityDTO is the public shape of a community.
type CommunityDTO struct {
	CommunityID  string                `json:"communityId"`
	Name         string                `json:"name"`
	Description  *string               `json:"description,omitempty"`
	CreatedBy    uuid.UUID             `json:"createdBy"`
	Location     LocationDTO           `json:"location"`
	RadiusMeters int                   `json:"radius"`
	Status       enums.CommunityStatus `json:"status"`
	MemberCount  int                   `json:"memberCount"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// NearbyCommunity is a discovery candidate decorated for the requesting user.
type NearbyCommunity struct {
	CommunityDTO
	DistanceFromUser int                     `json:"distanceFromUser"`
	CanJoin          bool                    `json:"canJoin"`
	IsMember         bool                    `json:"isMember"`
	MembershipStatus *enums.MembershipStatus `json:"membershipStatus"`
}

// NearbySet is the registry answer to a proximity query. Fallback marks the
// newest-first set returned when nothing was in range.
type NearbySet struct {
	Communities []NearbyCommunity
	Fallback    bool
}

// NearbyInput bounds a discovery request.
type NearbyInput struct {
	MaxDistance float64
	Limit       int
}

// NearbyResult is the discovery response.
type NearbyResult struct {
	UserLocation            geo.Coordinate    `json:"userLocation"`
	Communities             []NearbyCommunity `json:"communities"`
	IsUsingFallbackLocation bool              `json:"isUsingFallbackLocation"`
	FallbackMessage         string            `json:"fallbackMessage,omitempty"`
	FallbackResults         bool              `json:"fallbackResults"`
}

// ListedCommunity is a search result. DistanceFromUser is set when the search had an origin.
type ListedCommunity struct {
	CommunityDTO
	DistanceFromUser *int `json:"distanceFromUser,omitempty"`
}

// Filters narrow a community search.
type Filters struct {
	Origin      *geo.Coordinate
	MaxDistance float64
	Text        string
}

// SearchResult is one page of communities.
type SearchResult struct {
	Communities []ListedCommunity `json:"communities"`
	Pagination  pagination.Meta   `json:"pagination"`
}

// CreateInput is what a user submits to create a community.
type CreateInput struct {
	Name         string
	Description  *string
	Center       geo.Coordinate
	RadiusMeters int
	LocationName string
	Address      *string
}

// CreateSpec is the validated registry input.
type CreateSpec struct {
	Name         string
	Description  *string
	CreatedBy    uuid.UUID
	Center       geo.Coordinate
	RadiusMeters int
	LocationName string
	Address      *string
}

// CreateResult pairs the new community with the creator's membership.
type CreateResult struct {
	Community  CommunityDTO              `json:"community"`
	Membership memberships.MembershipDTO `json:"membership"`
}

// RoleResult answers the role query for one community.
type RoleResult struct {
	memberships.RoleInfo
	CommunityID   string `json:"communityId"`
	CommunityName string `json:"communityName"`
}

// FromModel maps a community row to its DTO.
func FromModel(m models.Community) CommunityDTO {
	return CommunityDTO{
		CommunityID: m.CommunityID,
		Name:        m.Name,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		Location: LocationDTO{
			Coordinates:  m.Center(),
			LocationName: m.LocationName,
			Address:      m.Address,
		},
		RadiusMeters: m.RadiusMeters,
		Status:       m.Status,
		MemberCount:  m.MemberCount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
