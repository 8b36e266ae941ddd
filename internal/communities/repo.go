package communities

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/types"
)

// CommunityRepository is the persistence surface of the registry.
type CommunityRepository interface {
	WithTx(tx *gorm.DB) CommunityRepository
	Create(ctx context.Context, community *models.Community) error
	FindByID(ctx context.Context, communityID string) (*models.Community, error)
	ListActiveByName(ctx context.Context, name string, box geo.Box) ([]models.Community, error)
	ListActiveInBox(ctx context.Context, box geo.Box, text string) ([]models.Community, error)
	ListActiveWithin(ctx context.Context, origin geo.Coordinate, maxDistance float64, text string, offset, limit int) ([]DistanceRow, error)
	CountActiveWithin(ctx context.Context, origin geo.Coordinate, maxDistance float64, text string) (int64, error)
	ListNewestActive(ctx context.Context, text string, offset, limit int) ([]models.Community, error)
	CountActive(ctx context.Context, text string) (int64, error)
	AdjustMemberCount(ctx context.Context, communityID string, delta int) (clamped bool, err error)
	SetMemberCount(ctx context.Context, communityID string, count int64) error
	SetStatus(ctx context.Context, communityID string, status enums.CommunityStatus) (int64, error)
	ListBatch(ctx context.Context, afterID string, limit int) ([]models.Community, error)
}

// DistanceRow is a community with its distance from the query origin.
type DistanceRow struct {
	models.Community
	DistanceMeters float64 `gorm:"column:distance_meters"`
}

// Repository persists communities.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CommunityRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

func (r *Repository) FindByID(ctx context.Context, communityID string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("community_id = ?", communityID).First(&community).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

// ListActiveByName returns active communities inside box whose name equals name ignoring case.
func (r *Repository) ListActiveByName(ctx context.Context, name string, box geo.Box) ([]models.Community, error) {
	var rows []models.Community
	err := r.active(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Scopes(inBox(box)).
		Find(&rows).Error
	return rows, err
}

// ListActiveInBox is the bounding-box prefilter for proximity queries.
func (r *Repository) ListActiveInBox(ctx context.Context, box geo.Box, text string) ([]models.Community, error) {
	var rows []models.Community
	err := r.active(ctx).
		Scopes(inBox(box), matchingText(text)).
		Find(&rows).Error
	return rows, err
}

// ListActiveWithin queries the geography column, nearest first.
func (r *Repository) ListActiveWithin(ctx context.Context, origin geo.Coordinate, maxDistance float64, text string, offset, limit int) ([]DistanceRow, error) {
	point := types.PointFrom(origin)
	var rows []DistanceRow
	err := r.active(ctx).
		Select("communities.*, ST_Distance(geom, ?::geography) AS distance_meters", point).
		Where("ST_DWithin(geom, ?::geography, ?)", point, maxDistance).
		Scopes(matchingText(text)).
		Order("distance_meters ASC").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) CountActiveWithin(ctx context.Context, origin geo.Coordinate, maxDistance float64, text string) (int64, error) {
	var total int64
	err := r.active(ctx).
		Where("ST_DWithin(geom, ?::geography, ?)", types.PointFrom(origin), maxDistance).
		Scopes(matchingText(text)).
		Count(&total).Error
	return total, err
}

func (r *Repository) ListNewestActive(ctx context.Context, text string, offset, limit int) ([]models.Community, error) {
	var rows []models.Community
	err := r.active(ctx).
		Scopes(matchingText(text)).
		Order("created_at DESC").
		Order("community_id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CountActive(ctx context.Context, text string) (int64, error) {
	var total int64
	err := r.active(ctx).Scopes(matchingText(text)).Count(&total).Error
	return total, err
}

// AdjustMemberCount applies delta in one statement. A decrement that would go
// below zero sets the count to zero instead and reports clamped. Missing
// communities return gorm.ErrRecordNotFound.
func (r *Repository) AdjustMemberCount(ctx context.Context, communityID string, delta int) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("community_id = ? AND member_count + ? >= 0", communityID, delta).
		Updates(map[string]any{
			"member_count": gorm.Expr("member_count + ?", delta),
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	res = r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("community_id = ?", communityID).
		Updates(map[string]any{"member_count": 0, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return true, nil
}

// SetMemberCount overwrites the cached count. Only reconciliation uses it.
func (r *Repository) SetMemberCount(ctx context.Context, communityID string, count int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("community_id = ?", communityID).
		Updates(map[string]any{"member_count": count, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) SetStatus(ctx context.Context, communityID string, status enums.CommunityStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("community_id = ?", communityID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// ListBatch pages through every community in id order.
func (r *Repository) ListBatch(ctx context.Context, afterID string, limit int) ([]models.Community, error) {
	var rows []models.Community
	err := r.db.WithContext(ctx).
		Where("community_id > ?", afterID).
		Order("community_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("communities.status = ?", enums.CommunityStatusActive)
}

func inBox(box geo.Box) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("center_lat BETWEEN ? AND ?", box.MinLat, box.MaxLat).
			Where("center_lng BETWEEN ? AND ?", box.MinLng, box.MaxLng)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func matchingText(text string) func(*gorm.DB) *gorm.DB {
	text = strings.TrimSpace(text)
	return func(db *gorm.DB) *gorm.DB {
		if text == "" {
			return db
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		return db.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
}
