package memberships

import (
	"time"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

type membershipWithCommunityRow struct {
	models.Membership
	CommunityName   string                `gorm:"column:community_name"`
	LocationName    string                `gorm:"column:location_name"`
	CommunityStatus enums.CommunityStatus `gorm:"column:community_status"`
	MemberCount     int                   `gorm:"column:member_count"`
}

func userCommunityFromRow(row membershipWithCommunityRow) UserCommunityDTO {
	return UserCommunityDTO{
		MembershipID:    row.MembershipID,
		CommunityID:     row.CommunityID,
		Name:            row.CommunityName,
		LocationName:    row.LocationName,
		CommunityStatus: row.CommunityStatus,
		MemberCount:     row.MemberCount,
		Role:            row.Role,
		JoinedAt:        row.JoinedAt,
	}
}

func userCommunitiesFromRows(rows []membershipWithCommunityRow) []UserCommunityDTO {
	out := make([]UserCommunityDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, userCommunityFromRow(row))
	}
	return out
}

func pendingFromModels(rows []models.Membership) []PendingRequestDTO {
	out := make([]PendingRequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, PendingRequestDTO{
			MembershipID: row.MembershipID,
			UserID:       row.UserID,
			Role:         row.Role,
			RequestedAt:  row.JoinedAt,
		})
	}
	return out
}

func roleInfoFromModel(m *models.Membership) RoleInfo {
	if m == nil {
		return RoleInfo{}
	}
	role := m.Role
	status := m.Status
	joined := m.JoinedAt
	return RoleInfo{
		IsMember:     m.Status == enums.MembershipStatusActive,
		MembershipID: m.MembershipID,
		Role:         &role,
		Status:       &status,
		JoinedAt:     &joined,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
