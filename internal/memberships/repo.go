package memberships

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

// Repository exposes membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) MembershipRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create persists a new membership record. The unique index on
// (user_id, community_id) rejects a second row for the same pair.
func (r *Repository) Create(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

// Find retrieves the membership for a user and community.
func (r *Repository) Find(ctx context.Context, userID uuid.UUID, communityID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// FindByID retrieves a membership by its id.
func (r *Repository) FindByID(ctx context.Context, membershipID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("membership_id = ?", membershipID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListForUser returns the user's memberships among the given communities.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, communityIDs []string) ([]models.Membership, error) {
	if len(communityIDs) == 0 {
		return nil, nil
	}
	var rows []models.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id IN ?", userID, communityIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ActivatePending flips a pending membership to active. The status guard
// makes concurrent approvals affect at most one row.
func (r *Repository) ActivatePending(ctx context.Context, membershipID, communityID string, approverID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("membership_id = ? AND community_id = ? AND status = ?", membershipID, communityID, enums.MembershipStatusPending).
		Updates(map[string]any{
			"status":      enums.MembershipStatusActive,
			"approved_by": approverID,
			"approved_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

// DeleteWithStatus removes a membership only while it still has the given status.
func (r *Repository) DeleteWithStatus(ctx context.Context, membershipID, communityID string, status enums.MembershipStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("membership_id = ? AND community_id = ? AND status = ?", membershipID, communityID, status).
		Delete(&models.Membership{})
	return res.RowsAffected, res.Error
}

// SetRole changes the role of an active membership still holding role from.
func (r *Repository) SetRole(ctx context.Context, membershipID, communityID string, from, to enums.MemberRole) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("membership_id = ? AND community_id = ? AND status = ? AND role = ?", membershipID, communityID, enums.MembershipStatusActive, from).
		Update("role", to)
	return res.RowsAffected, res.Error
}

// ListPending returns pending requests for a community, newest first.
func (r *Repository) ListPending(ctx context.Context, communityID string) ([]models.Membership, error) {
	var rows []models.Membership
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND status = ?", communityID, enums.MembershipStatusPending).
		Order("joined_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListUserCommunities returns the user's active memberships joined with community metadata.
func (r *Repository) ListUserCommunities(ctx context.Context, userID uuid.UUID) ([]UserCommunityDTO, error) {
	var rows []membershipWithCommunityRow
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Select("memberships.*, communities.name AS community_name, communities.location_name, communities.status AS community_status, communities.member_count").
		Joins("JOIN communities ON communities.community_id = memberships.community_id").
		Where("memberships.user_id = ? AND memberships.status = ?", userID, enums.MembershipStatusActive).
		Order("memberships.joined_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return userCommunitiesFromRows(rows), nil
}

type activeCountRow struct {
	CommunityID string `gorm:"column:community_id"`
	Total       int64  `gorm:"column:total"`
}

// CountActiveByCommunity counts active memberships per community in one grouped query.
// Communities without active memberships are present with a zero count.
func (r *Repository) CountActiveByCommunity(ctx context.Context, communityIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(communityIDs))
	if len(communityIDs) == 0 {
		return out, nil
	}
	for _, id := range communityIDs {
		out[id] = 0
	}

	var rows []activeCountRow
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Select("community_id, COUNT(*) AS total").
		Where("community_id IN ? AND status = ?", communityIDs, enums.MembershipStatusActive).
		Group("community_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CommunityID] = row.Total
	}
	return out, nil
}
