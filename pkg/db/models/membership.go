package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

// Membership links a user with a community and captures their role/status.
// At most one row exists per (user_id, community_id).
type Membership struct {
	MembershipID string                 `gorm:"column:membership_id;primaryKey"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_memberships_user_community,priority:1;index:idx_memberships_user_status,priority:1"`
	CommunityID  string                 `gorm:"column:community_id;not null;uniqueIndex:ux_memberships_user_community,priority:2;index:idx_memberships_community_role,priority:1"`
	Role         enums.MemberRole       `gorm:"column:role;type:text;not null;index:idx_memberships_community_role,priority:2"`
	Status       enums.MembershipStatus `gorm:"column:status;type:text;not null;index:idx_memberships_user_status,priority:2"`
	JoinedAt     time.Time              `gorm:"column:joined_at;not null"`
	ApprovedBy   *uuid.UUID             `gorm:"column:approved_by;type:uuid"`
	ApprovedAt   *time.Time             `gorm:"column:approved_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Membership) TableName() string { return "memberships" }

// UniqueUserCommunityConstraint names the index that enforces one membership per pair.
const UniqueUserCommunityConstraint = "ux_memberships_user_community"
