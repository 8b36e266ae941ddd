package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

// MembershipDTO is the transport shape for a raw membership record.
type MembershipDTO struct {
	MembershipID string                 `json:"membershipId"`
	CommunityID  string                 `json:"communityId"`
	UserID       uuid.UUID              `json:"userId"`
	Role         enums.MemberRole       `json:"role"`
	Status       enums.MembershipStatus `json:"status"`
	JoinedAt     time.Time              `json:"joinedAt"`
	ApprovedBy   *uuid.UUID             `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time             `json:"approvedAt,omitempty"`
}

// RoleInfo answers "what is this user in this community". IsMember is only
// true for active memberships.
type RoleInfo struct {
	IsMember     bool                    `json:"isMember"`
	MembershipID string                  `json:"membershipId,omitempty"`
	Role         *enums.MemberRole       `json:"role"`
	Status       *enums.MembershipStatus `json:"status"`
	JoinedAt     *time.Time              `json:"joinedAt,omitempty"`
}

// RequestInput creates a membership.
type RequestInput struct {
	UserID      uuid.UUID
	CommunityID string
	Role        enums.MemberRole
	Status      enums.MembershipStatus
}

// PendingRequestDTO is a join request awaiting an admin decision.
type PendingRequestDTO struct {
	MembershipID string           `json:"membershipId"`
	UserID       uuid.UUID        `json:"userId"`
	Role         enums.MemberRole `json:"role"`
	RequestedAt  time.Time        `json:"requestedAt"`
}

// UserCommunityDTO is an active membership joined with community metadata.
type UserCommunityDTO struct {
	MembershipID    string                `json:"membershipId"`
	CommunityID     string                `json:"communityId"`
	Name            string                `json:"name"`
	LocationName    string                `json:"locationName"`
	CommunityStatus enums.CommunityStatus `json:"communityStatus"`
	MemberCount     int                   `json:"memberCount"`
	Role            enums.MemberRole      `json:"role"`
	JoinedAt        time.Time             `json:"joinedAt"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Membership) *MembershipDTO {
	if m == nil {
		return nil
	}

	return &MembershipDTO{
		MembershipID: m.MembershipID,
		CommunityID:  m.CommunityID,
		UserID:       m.UserID,
		Role:         m.Role,
		Status:       m.Status,
		JoinedAt:     m.JoinedAt,
		ApprovedBy:   copyUUIDPointer(m.ApprovedBy),
		ApprovedAt:   copyTimePointer(m.ApprovedAt),
	}
}

func copyUUIDPointer(src *uuid.UUID) *uuid.UUID {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}

func copyTimePointer(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}
