package locations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.UserLocation{}))
	return conn
}

func floatPtr(v float64) *float64 { return &v }

func TestRepositoryUpsertReplacesRow(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.UserLocation{UserID: userID, Latitude: floatPtr(1), Longitude: floatPtr(2), City: "First"}))
	require.NoError(t, repo.Upsert(ctx, &models.UserLocation{UserID: userID, Latitude: floatPtr(3), Longitude: floatPtr(4), City: "Second"}))

	got, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.City)
	assert.Equal(t, 3.0, *got.Latitude)
	assert.Equal(t, 4.0, *got.Longitude)
}

func TestRepositoryUpsertRequiresUser(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	assert.Error(t, repo.Upsert(context.Background(), &models.UserLocation{}))
	assert.Error(t, repo.Upsert(context.Background(), nil))
}

func TestRepositoryGetMissing(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListInBox(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	me := uuid.New()
	inside := uuid.New()
	outside := uuid.New()
	unset := uuid.New()
	require.NoError(t, repo.Upsert(ctx, &models.UserLocation{UserID: me, Latitude: floatPtr(40.71), Longitude: floatPtr(-74.0)}))
	require.NoError(t, repo.Upsert(ctx, &models.UserLocation{UserID: inside, Latitude: floatPtr(40.72), Longitude: floatPtr(-74.01)}))
	require.NoError(t, repo.Upsert(ctx, &models.UserLocation{UserID: outside, Latitude: floatPtr(42.0), Longitude: floatPtr(-74.0)}))
	require.NoError(t, db.Create(&models.UserLocation{UserID: unset}).Error)

	box := geo.BoundingBox(geo.Coordinate{Latitude: 40.71, Longitude: -74.0}, 5000)
	rows, err := repo.ListInBox(ctx, box, me)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, inside, rows[0].UserID)
}
