package memberships

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

// MembershipRepository is the persistence surface the ledger depends on.
type MembershipRepository interface {
	WithTx(tx *gorm.DB) MembershipRepository
	Create(ctx context.Context, membership *models.Membership) error
	Find(ctx context.Context, userID uuid.UUID, communityID string) (*models.Membership, error)
	FindByID(ctx context.Context, membershipID string) (*models.Membership, error)
	ListForUser(ctx context.Context, userID uuid.UUID, communityIDs []string) ([]models.Membership, error)
	ActivatePending(ctx context.Context, membershipID, communityID string, approverID uuid.UUID, at time.Time) (int64, error)
	DeleteWithStatus(ctx context.Context, membershipID, communityID string, status enums.MembershipStatus) (int64, error)
	SetRole(ctx context.Context, membershipID, communityID string, from, to enums.MemberRole) (int64, error)
	ListPending(ctx context.Context, communityID string) ([]models.Membership, error)
	ListUserCommunities(ctx context.Context, userID uuid.UUID) ([]UserCommunityDTO, error)
	CountActiveByCommunity(ctx context.Context, communityIDs []string) (map[string]int64, error)
}

// MemberCounter adjusts the cached member count of a community inside the
// caller's transaction.
type MemberCounter interface {
	AdjustMemberCountTx(ctx context.Context, tx *gorm.DB, communityID string, delta int) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// boundTx runs fn on an already open transaction.
type boundTx struct {
	tx *gorm.DB
}

func (b boundTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(b.tx)
}
