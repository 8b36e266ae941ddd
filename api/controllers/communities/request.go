package communities

import (
	"strings"

	internalcommunities "github.com/neighbridge/neighbridge-backend/internal/communities"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
)

type createCommunityRequest struct {
	Name         string   `json:"name" validate:"required,notblank,min=3,max=100"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	CenterLat    *float64 `json:"centerLat" validate:"required,latitude"`
	CenterLng    *float64 `json:"centerLng" validate:"required,longitude"`
	Radius       int      `json:"radius" validate:"required,gte=100,lte=50000"`
	LocationName string   `json:"locationName,omitempty" validate:"omitempty,max=200"`
	Address      *string  `json:"address,omitempty" validate:"omitempty,max=200"`
}

func (r createCommunityRequest) toInput() internalcommunities.CreateInput {
	input := internalcommunities.CreateInput{
		Name:         r.Name,
		Description:  r.Description,
		RadiusMeters: r.Radius,
		LocationName: strings.TrimSpace(r.LocationName),
		Address:      r.Address,
	}
	if r.CenterLat != nil && r.CenterLng != nil {
		input.Center = geo.Coordinate{Latitude: *r.CenterLat, Longitude: *r.CenterLng}
	}
	return input
}

const (
	requestActionApprove = "approve"
	requestActionReject  = "reject"
)

type membershipDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}
