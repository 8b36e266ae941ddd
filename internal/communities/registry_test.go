package communities

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/metrics"
	"github.com/neighbridge/neighbridge-backend/pkg/pagination"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Community{}, &models.Membership{}, &models.UserLocation{}))
	return conn
}

func newTestRegistry(t *testing.T, conn *gorm.DB, fallbackAll bool) *Registry {
	t.Helper()
	registry, err := NewRegistry(RegistryParams{
		Repo:                 NewRepository(conn),
		DiscoveryFallbackAll: fallbackAll,
		Metrics:              metrics.NewCommunityMetrics(nil),
	})
	require.NoError(t, err)
	return registry
}

func createCommunity(t *testing.T, registry *Registry, name string, lat, lng float64, radius int) *CommunityDTO {
	t.Helper()
	dto, err := registry.Create(context.Background(), CreateSpec{
		Name:         name,
		CreatedBy:    uuid.New(),
		Center:       geo.Coordinate{Latitude: lat, Longitude: lng},
		RadiusMeters: radius,
		LocationName: name + " block",
	})
	require.NoError(t, err)
	return dto
}

func TestNewRegistryRequiresRepo(t *testing.T) {
	_, err := NewRegistry(RegistryParams{})
	assert.Error(t, err)
}

func TestRegistryCreate(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	desc := "  porch talk  "

	dto, err := registry.Create(context.Background(), CreateSpec{
		Name:         "  Elm Street  ",
		Description:  &desc,
		CreatedBy:    uuid.New(),
		Center:       geo.Coordinate{Latitude: 40, Longitude: -74},
		RadiusMeters: 500,
		LocationName: "Elm",
	})
	require.NoError(t, err)
	assert.Equal(t, "Elm Street", dto.Name)
	require.NotNil(t, dto.Description)
	assert.Equal(t, "porch talk", *dto.Description)
	assert.Equal(t, 1, dto.MemberCount)
	assert.Equal(t, enums.CommunityStatusActive, dto.Status)
	assert.Regexp(t, `^comm_[0-9a-f-]{36}$`, dto.CommunityID)
}

func TestRegistryCreateValidation(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	longDesc := strings.Repeat("x", MaxDescriptionLength+1)
	valid := CreateSpec{
		Name:         "Elm Street",
		CreatedBy:    uuid.New(),
		Center:       geo.Coordinate{Latitude: 40, Longitude: -74},
		RadiusMeters: 500,
	}

	cases := map[string]func(s *CreateSpec){
		"short name":       func(s *CreateSpec) { s.Name = " ab " },
		"no creator":       func(s *CreateSpec) { s.CreatedBy = uuid.Nil },
		"small radius":     func(s *CreateSpec) { s.RadiusMeters = 99 },
		"large radius":     func(s *CreateSpec) { s.RadiusMeters = 50001 },
		"bad latitude":     func(s *CreateSpec) { s.Center.Latitude = 95 },
		"long description": func(s *CreateSpec) { s.Description = &longDesc },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := valid
			mutate(&spec)
			_, err := registry.Create(context.Background(), spec)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestRegistryCreateSimilarNameConflict(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	createCommunity(t, registry, "Elm Street", 40.0, -74.0, 500)

	_, err := registry.Create(context.Background(), CreateSpec{
		Name:         "elm street",
		CreatedBy:    uuid.New(),
		Center:       geo.Coordinate{Latitude: 40.005, Longitude: -74.0},
		RadiusMeters: 500,
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	// same name farther than 1000 m is allowed
	createCommunity(t, registry, "Elm Street", 40.02, -74.0, 500)
}

func TestRegistryFindNearbyOrdersAndDecorates(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	far := createCommunity(t, registry, "Far Field", 40.05, -74.0, 1000)
	near := createCommunity(t, registry, "Near Park", 40.001, -74.0, 500)
	createCommunity(t, registry, "Other City", 41.0, -74.0, 1000)

	set, err := registry.FindNearby(context.Background(), geo.Coordinate{Latitude: 40.0, Longitude: -74.0}, 10000, 0)
	require.NoError(t, err)
	require.Len(t, set.Communities, 2)
	assert.False(t, set.Fallback)

	assert.Equal(t, near.CommunityID, set.Communities[0].CommunityID)
	assert.InDelta(t, 111, set.Communities[0].DistanceFromUser, 1)
	assert.True(t, set.Communities[0].CanJoin)

	assert.Equal(t, far.CommunityID, set.Communities[1].CommunityID)
	assert.False(t, set.Communities[1].CanJoin)
}

func TestRegistryFindNearbyRoundTrip(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	created := createCommunity(t, registry, "Round Trip", 35.6762, 139.6503, 300)

	set, err := registry.FindNearby(context.Background(), created.Location.Coordinates, 0, 10)
	require.NoError(t, err)
	require.Len(t, set.Communities, 1)
	assert.Equal(t, 0, set.Communities[0].DistanceFromUser)
	assert.True(t, set.Communities[0].CanJoin)
}

func TestRegistryFindNearbyHidesSuspended(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	c := createCommunity(t, registry, "Quiet Lane", 40.0, -74.0, 500)
	_, err := registry.SetStatus(context.Background(), c.CommunityID, enums.CommunityStatusSuspended)
	require.NoError(t, err)

	set, err := registry.FindNearby(context.Background(), geo.Coordinate{Latitude: 40.0, Longitude: -74.0}, 1000, 10)
	require.NoError(t, err)
	assert.Empty(t, set.Communities)

	_, err = registry.GetActive(context.Background(), c.CommunityID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRegistryFindNearbyFallbackAll(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), true)
	createCommunity(t, registry, "Distant One", 10.0, 10.0, 500)

	set, err := registry.FindNearby(context.Background(), geo.Coordinate{Latitude: 40.0, Longitude: -74.0}, 1000, 10)
	require.NoError(t, err)
	assert.True(t, set.Fallback)
	require.Len(t, set.Communities, 1)
	assert.True(t, set.Communities[0].CanJoin)
	assert.Equal(t, 0, set.Communities[0].DistanceFromUser)
}

func TestRegistryFindNearbyLimit(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	for i := 0; i < 5; i++ {
		createCommunity(t, registry, "Block "+string(rune('A'+i)), 40.0+float64(i)*0.002, -74.0, 500)
	}
	set, err := registry.FindNearby(context.Background(), geo.Coordinate{Latitude: 40.0, Longitude: -74.0}, 10000, 3)
	require.NoError(t, err)
	assert.Len(t, set.Communities, 3)
}

func TestRegistrySearch(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	createCommunity(t, registry, "Garden Club", 40.0, -74.0, 500)
	createCommunity(t, registry, "Garden Walkers", 40.1, -74.0, 500)
	createCommunity(t, registry, "Chess Night", 40.0, -74.001, 500)
	ctx := context.Background()

	res, err := registry.Search(ctx, Filters{Text: "garden"}, pagination.Params{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Communities, 1)
	assert.Equal(t, int64(2), res.Pagination.Total)
	assert.Equal(t, 2, res.Pagination.Pages)
	assert.True(t, res.Pagination.HasNext)
	assert.False(t, res.Pagination.HasPrev)
	assert.Nil(t, res.Communities[0].DistanceFromUser)

	origin := geo.Coordinate{Latitude: 40.0, Longitude: -74.0}
	res, err = registry.Search(ctx, Filters{Origin: &origin, MaxDistance: 5000}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Communities, 2)
	assert.Equal(t, "Garden Club", res.Communities[0].Name)
	require.NotNil(t, res.Communities[0].DistanceFromUser)
	assert.Equal(t, 0, *res.Communities[0].DistanceFromUser)
	assert.Equal(t, "Chess Night", res.Communities[1].Name)

	_, err = registry.Search(ctx, Filters{Origin: &origin, MaxDistance: 50}, pagination.Params{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRegistryAdjustMemberCountClampsAtZero(t *testing.T) {
	conn := openTestDB(t)
	registry := newTestRegistry(t, conn, false)
	c := createCommunity(t, registry, "Counter Town", 40.0, -74.0, 500)
	ctx := context.Background()

	require.NoError(t, registry.AdjustMemberCount(ctx, c.CommunityID, 2))
	got, err := registry.Get(ctx, c.CommunityID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MemberCount)

	require.NoError(t, registry.AdjustMemberCount(ctx, c.CommunityID, -5))
	got, err = registry.Get(ctx, c.CommunityID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MemberCount)

	err = registry.AdjustMemberCount(ctx, "comm_missing", 1)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRegistrySetStatusUnknown(t *testing.T) {
	registry := newTestRegistry(t, openTestDB(t), false)
	_, err := registry.SetStatus(context.Background(), "comm_missing", enums.CommunityStatusSuspended)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = registry.SetStatus(context.Background(), "comm_missing", "archived")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
