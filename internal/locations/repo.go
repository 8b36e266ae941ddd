package locations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/types"
)

// Repository persists user locations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored row or gorm.ErrRecordNotFound.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.UserLocation, error) {
	var loc models.UserLocation
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&loc).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

// Upsert replaces the row for loc.UserID in a single statement.
func (r *Repository) Upsert(ctx context.Context, loc *models.UserLocation) error {
	if loc == nil || loc.UserID == uuid.Nil {
		return errors.New("user location requires a user id")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "address", "city", "state", "country", "updated_at"}),
		}).
		Create(loc).Error
}

// ListInBox returns located users inside box, excluding one user.
func (r *Repository) ListInBox(ctx context.Context, box geo.Box, exclude uuid.UUID) ([]models.UserLocation, error) {
	var rows []models.UserLocation
	err := r.db.WithContext(ctx).
		Where("user_id <> ?", exclude).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type nearbyUserRow struct {
	models.UserLocation
	DistanceMeters float64 `gorm:"column:distance_meters"`
}

// ListWithinPostGIS uses the geography column to find users within radius,
// nearest first.
func (r *Repository) ListWithinPostGIS(ctx context.Context, origin geo.Coordinate, radiusMeters float64, exclude uuid.UUID, limit int) ([]nearbyUserRow, error) {
	point := types.PointFrom(origin)
	var rows []nearbyUserRow
	err := r.db.WithContext(ctx).
		Model(&models.UserLocation{}).
		Select("user_locations.*, ST_Distance(geom, ?::geography) AS distance_meters", point).
		Where("user_id <> ?", exclude).
		Where("geom IS NOT NULL").
		Where("ST_DWithin(geom, ?::geography, ?)", point, radiusMeters).
		Order("distance_meters ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
