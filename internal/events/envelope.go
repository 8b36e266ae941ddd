package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

const envelopeVersion = 1

// Envelope is the JSON body of every community event message.
type Envelope struct {
	Version     int                      `json:"version"`
	EventID     string                   `json:"eventId"`
	Type        enums.CommunityEventType `json:"type"`
	OccurredAt  time.Time                `json:"occurredAt"`
	ActorID     uuid.UUID                `json:"actorId"`
	CommunityID string                   `json:"communityId"`
	Data        json.RawMessage          `json:"data,omitempty"`
}

// CommunityData accompanies community.* events.
type CommunityData struct {
	Name         string                `json:"name"`
	Status       enums.CommunityStatus `json:"status"`
	CenterLat    float64               `json:"centerLat"`
	CenterLng    float64               `json:"centerLng"`
	RadiusMeters int                   `json:"radiusMeters"`
}

// MembershipData accompanies membership.* events.
type MembershipData struct {
	MembershipID string                 `json:"membershipId"`
	UserID       uuid.UUID              `json:"userId"`
	Role         enums.MemberRole       `json:"role"`
	Status       enums.MembershipStatus `json:"status"`
}

// Event is what callers hand to the publisher.
type Event struct {
	Type        enums.CommunityEventType
	ActorID     uuid.UUID
	CommunityID string
	Data        any
}
