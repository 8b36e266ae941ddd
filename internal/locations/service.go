package locations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

const (
	DefaultNearbyRadiusKm = 10.0
	MinNearbyRadiusKm     = 0.1
	MaxNearbyRadiusKm     = 100.0
	MaxNearbyUsers        = 50

	maxAddressLen = 200
	maxPartLen    = 100
)

type locationStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserLocation, error)
	Upsert(ctx context.Context, loc *models.UserLocation) error
	ListInBox(ctx context.Context, box geo.Box, exclude uuid.UUID) ([]models.UserLocation, error)
	ListWithinPostGIS(ctx context.Context, origin geo.Coordinate, radiusMeters float64, exclude uuid.UUID, limit int) ([]nearbyUserRow, error)
}

// Service is the location directory.
type Service interface {
	Resolve(ctx context.Context, userID uuid.UUID) (Resolution, error)
	Get(ctx context.Context, userID uuid.UUID) (*LocationDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*LocationDTO, error)
	FindNearbyUsers(ctx context.Context, userID uuid.UUID, radiusKm float64) ([]NearbyUser, error)
}

// ServiceParams configure the location directory.
type ServiceParams struct {
	Repo       locationStore
	Fallback   geo.Coordinate
	UsePostGIS bool
	Logger     *logger.Logger
}

type service struct {
	repo       locationStore
	fallback   geo.Coordinate
	usePostGIS bool
	logg       *logger.Logger
}

// NewService builds the location directory.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("location repository required")
	}
	if err := params.Fallback.Validate(); err != nil {
		return nil, fmt.Errorf("fallback location: %w", err)
	}
	return &service{
		repo:       params.Repo,
		fallback:   params.Fallback,
		usePostGIS: params.UsePostGIS,
		logg:       params.Logger,
	}, nil
}

func (s *service) Resolve(ctx context.Context, userID uuid.UUID) (Resolution, error) {
	loc, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Resolution{Coordinate: s.fallback, IsFallback: true}, nil
		}
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user location")
	}
	c, ok := loc.Coordinate()
	if !ok {
		return Resolution{Coordinate: s.fallback, IsFallback: true}, nil
	}
	return Resolution{Coordinate: c}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*LocationDTO, error) {
	loc, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user location not set")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user location")
	}
	dto, ok := FromModel(*loc)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user location not set")
	}
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*LocationDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := input.Coordinate.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinate "+input.Coordinate.String())
	}

	fields := []struct {
		name  string
		value *string
		limit int
	}{
		{"address", &input.Address, maxAddressLen},
		{"city", &input.City, maxPartLen},
		{"state", &input.State, maxPartLen},
		{"country", &input.Country, maxPartLen},
	}
	for _, field := range fields {
		*field.value = strings.TrimSpace(*field.value)
		if utf8.RuneCountInString(*field.value) > field.limit {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", field.name, field.limit))
		}
	}

	lat, lng := input.Coordinate.Latitude, input.Coordinate.Longitude
	row := &models.UserLocation{
		UserID:    userID,
		Latitude:  &lat,
		Longitude: &lng,
		Address:   input.Address,
		City:      input.City,
		State:     input.State,
		Country:   input.Country,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user location")
	}
	s.logg.Info(s.logg.WithCoarseLocation(s.logg.WithUserID(ctx, userID.String()), lat, lng), "location.updated")

	dto, _ := FromModel(*row)
	return &dto, nil
}

func (s *service) FindNearbyUsers(ctx context.Context, userID uuid.UUID, radiusKm float64) ([]NearbyUser, error) {
	if radiusKm == 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	if radiusKm < MinNearbyRadiusKm || radiusKm > MaxNearbyRadiusKm {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("radius must be between %.1f and %.0f km", MinNearbyRadiusKm, MaxNearbyRadiusKm))
	}

	res, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if res.IsFallback {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user location not set")
	}

	radius := radiusKm * 1000
	if s.usePostGIS {
		rows, err := s.repo.ListWithinPostGIS(ctx, res.Coordinate, radius, userID, MaxNearbyUsers)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query nearby users")
		}
		out := make([]NearbyUser, 0, len(rows))
		for _, row := range rows {
			c, ok := row.Coordinate()
			if !ok {
				continue
			}
			out = append(out, NearbyUser{UserID: row.UserID, Coordinates: c, City: row.City, DistanceMeters: geo.RoundMeters(row.DistanceMeters)})
		}
		return out, nil
	}

	rows, err := s.repo.ListInBox(ctx, geo.BoundingBox(res.Coordinate, radius), userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query nearby users")
	}

	type candidate struct {
		user     NearbyUser
		distance float64
	}
	candidates := make([]candidate, 0, len(rows))
	for _, row := range rows {
		c, ok := row.Coordinate()
		if !ok {
			continue
		}
		d, within := geo.Within(res.Coordinate, c, radius)
		if !within {
			continue
		}
		candidates = append(candidates, candidate{
			user:     NearbyUser{UserID: row.UserID, Coordinates: c, City: row.City, DistanceMeters: geo.RoundMeters(d)},
			distance: d,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	if len(candidates) > MaxNearbyUsers {
		candidates = candidates[:MaxNearbyUsers]
	}

	out := make([]NearbyUser, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.user)
	}
	return out, nil
}
