package locations

import (
	"time"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
)

// FallbackMessage discloses that results were computed from the default location.
const FallbackMessage = "Showing results from a default location. Update your profile location for personalized results."

// LocationDTO is the stored location of a user.
type LocationDTO struct {
	UserID      uuid.UUID      `json:"userId"`
	Coordinates geo.Coordinate `json:"coordinates"`
	Address     string         `json:"address,omitempty"`
	City        string         `json:"city,omitempty"`
	State       string         `json:"state,omitempty"`
	Country     string         `json:"country,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Resolution is the best known coordinate for a user.
type Resolution struct {
	Coordinate geo.Coordinate `json:"coordinates"`
	IsFallback bool           `json:"isFallback"`
}

// UpdateInput replaces the stored location of a user.
type UpdateInput struct {
	Coordinate geo.Coordinate
	Address    string
	City       string
	State      string
	Country    string
}

// NearbyUser is a user whose stored location lies within the search radius.
type NearbyUser struct {
	UserID         uuid.UUID      `json:"userId"`
	Coordinates    geo.Coordinate `json:"coordinates"`
	City           string         `json:"city,omitempty"`
	DistanceMeters int            `json:"distanceMeters"`
}

// FromModel maps the persisted row into the DTO. ok is false when the row has no usable coordinate.
func FromModel(m models.UserLocation) (LocationDTO, bool) {
	c, ok := m.Coordinate()
	return LocationDTO{
		UserID:      m.UserID,
		Coordinates: c,
		Address:     m.Address,
		City:        m.City,
		State:       m.State,
		Country:     m.Country,
		UpdatedAt:   m.UpdatedAt,
	}, ok
}
