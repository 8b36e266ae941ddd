package communities

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db"
	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
	"github.com/neighbridge/neighbridge-backend/pkg/metrics"
	"github.com/neighbridge/neighbridge-backend/pkg/pagination"
)

const (
	communityIDPrefix = "comm_"

	MinNameLength        = 3
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MinRadiusMeters      = 100
	MaxRadiusMeters      = 50000

	// similarNameRadiusMeters is how close two equally named communities may be.
	similarNameRadiusMeters = 1000

	DefaultNearbyMaxDistance = 10000.0
	DefaultNearbyLimit       = 50
	MaxNearbyLimit           = 50

	DefaultSearchMaxDistance = 50000.0
	MinSearchMaxDistance     = 100.0
	MaxSearchMaxDistance     = 100000.0
)

// NewCommunityID returns a fresh opaque community identifier.
func NewCommunityID() string {
	return communityIDPrefix + uuid.NewString()
}

// RegistryParams wire the registry.
type RegistryParams struct {
	Repo                 CommunityRepository
	UsePostGIS           bool
	DiscoveryFallbackAll bool
	Metrics              *metrics.CommunityMetrics
	Logger               *logger.Logger
}

// Registry stores communities and answers proximity queries over them.
type Registry struct {
	repo        CommunityRepository
	usePostGIS  bool
	fallbackAll bool
	metrics     *metrics.CommunityMetrics
	logg        *logger.Logger
}

// NewRegistry builds a community registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("community repository required")
	}
	return &Registry{
		repo:        params.Repo,
		usePostGIS:  params.UsePostGIS,
		fallbackAll: params.DiscoveryFallbackAll,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// WithTx returns a registry bound to tx.
func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	if tx == nil {
		return r
	}
	clone := *r
	clone.repo = r.repo.WithTx(tx)
	return &clone
}

// Create validates and stores a new active community counting its creator.
func (r *Registry) Create(ctx context.Context, spec CreateSpec) (*CommunityDTO, error) {
	if err := normalizeCreateSpec(&spec); err != nil {
		return nil, err
	}

	box := geo.BoundingBox(spec.Center, similarNameRadiusMeters)
	sameName, err := r.repo.ListActiveByName(ctx, spec.Name, box)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check similar communities")
	}
	for _, existing := range sameName {
		if _, ok := geo.Within(spec.Center, existing.Center(), similarNameRadiusMeters); ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a community with a similar name already exists in this area")
		}
	}

	community := &models.Community{
		CommunityID:  NewCommunityID(),
		Name:         spec.Name,
		Description:  spec.Description,
		CreatedBy:    spec.CreatedBy,
		CenterLat:    spec.Center.Latitude,
		CenterLng:    spec.Center.Longitude,
		RadiusMeters: spec.RadiusMeters,
		Status:       enums.CommunityStatusActive,
		MemberCount:  1,
		LocationName: spec.LocationName,
		Address:      spec.Address,
	}
	if err := r.repo.Create(ctx, community); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "community already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create community")
	}

	dto := FromModel(*community)
	return &dto, nil
}

func normalizeCreateSpec(spec *CreateSpec) error {
	if spec.CreatedBy == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "creator is required")
	}
	spec.Name = strings.TrimSpace(spec.Name)
	if n := utf8.RuneCountInString(spec.Name); n < MinNameLength || n > MaxNameLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("name must be between %d and %d characters", MinNameLength, MaxNameLength))
	}
	if spec.Description != nil {
		desc := strings.TrimSpace(*spec.Description)
		if utf8.RuneCountInString(desc) > MaxDescriptionLength {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
		}
		if desc == "" {
			spec.Description = nil
		} else {
			spec.Description = &desc
		}
	}
	if spec.RadiusMeters < MinRadiusMeters || spec.RadiusMeters > MaxRadiusMeters {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("radius must be between %d and %d meters", MinRadiusMeters, MaxRadiusMeters))
	}
	if err := spec.Center.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid community center "+spec.Center.String())
	}
	return nil
}

// FindNearby lists active communities within maxDistance of origin, nearest first.
func (r *Registry) FindNearby(ctx context.Context, origin geo.Coordinate, maxDistance float64, limit int) (*NearbySet, error) {
	if err := origin.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid origin "+origin.String())
	}
	if maxDistance <= 0 {
		maxDistance = DefaultNearbyMaxDistance
	}
	limit = normalizeNearbyLimit(limit)

	rows, err := r.nearest(ctx, origin, maxDistance, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query nearby communities")
	}

	set := &NearbySet{Communities: make([]NearbyCommunity, 0, len(rows))}
	for _, row := range rows {
		set.Communities = append(set.Communities, NearbyCommunity{
			CommunityDTO:     FromModel(row.Community),
			DistanceFromUser: geo.RoundMeters(row.DistanceMeters),
			CanJoin:          row.DistanceMeters <= float64(row.RadiusMeters),
		})
	}
	if len(set.Communities) > 0 || !r.fallbackAll {
		return set, nil
	}

	newest, err := r.repo.ListNewestActive(ctx, "", 0, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query fallback communities")
	}
	set.Fallback = true
	for _, row := range newest {
		set.Communities = append(set.Communities, NearbyCommunity{
			CommunityDTO: FromModel(row),
			CanJoin:      true,
		})
	}
	r.metrics.IncFallback("results")
	return set, nil
}

// Search pages through active communities. With an origin the page is
// ordered by distance, otherwise newest first.
func (r *Registry) Search(ctx context.Context, filters Filters, page pagination.Params) (*SearchResult, error) {
	page = page.Normalize()
	text := strings.TrimSpace(filters.Text)

	if filters.Origin == nil {
		total, err := r.repo.CountActive(ctx, text)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count communities")
		}
		rows, err := r.repo.ListNewestActive(ctx, text, page.Offset(), page.Limit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list communities")
		}
		out := make([]ListedCommunity, 0, len(rows))
		for _, row := range rows {
			out = append(out, ListedCommunity{CommunityDTO: FromModel(row)})
		}
		return &SearchResult{Communities: out, Pagination: pagination.NewMeta(page, total)}, nil
	}

	origin := *filters.Origin
	if err := origin.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid origin "+origin.String())
	}
	maxDistance := filters.MaxDistance
	if maxDistance == 0 {
		maxDistance = DefaultSearchMaxDistance
	}
	if maxDistance < MinSearchMaxDistance || maxDistance > MaxSearchMaxDistance {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("maxDistance must be between %.0f and %.0f meters", MinSearchMaxDistance, MaxSearchMaxDistance))
	}

	var (
		rows  []DistanceRow
		total int64
		err   error
	)
	if r.usePostGIS {
		total, err = r.repo.CountActiveWithin(ctx, origin, maxDistance, text)
		if err == nil {
			rows, err = r.repo.ListActiveWithin(ctx, origin, maxDistance, text, page.Offset(), page.Limit)
		}
	} else {
		var all []DistanceRow
		all, err = r.scanBox(ctx, origin, maxDistance, text)
		total = int64(len(all))
		rows = pageOf(all, page)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search communities")
	}

	out := make([]ListedCommunity, 0, len(rows))
	for _, row := range rows {
		d := geo.RoundMeters(row.DistanceMeters)
		out = append(out, ListedCommunity{CommunityDTO: FromModel(row.Community), DistanceFromUser: &d})
	}
	return &SearchResult{Communities: out, Pagination: pagination.NewMeta(page, total)}, nil
}

// Get returns a community in any status.
func (r *Registry) Get(ctx context.Context, communityID string) (*CommunityDTO, error) {
	community, err := r.repo.FindByID(ctx, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load community")
	}
	dto := FromModel(*community)
	return &dto, nil
}

// GetActive returns a community that is open for discovery and joins.
func (r *Registry) GetActive(ctx context.Context, communityID string) (*CommunityDTO, error) {
	dto, err := r.Get(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if dto.Status != enums.CommunityStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}
	return dto, nil
}

// AdjustMemberCount changes the cached member count outside of any caller transaction.
func (r *Registry) AdjustMemberCount(ctx context.Context, communityID string, delta int) error {
	return r.adjust(ctx, r.repo, communityID, delta)
}

// AdjustMemberCountTx changes the cached member count inside tx.
func (r *Registry) AdjustMemberCountTx(ctx context.Context, tx *gorm.DB, communityID string, delta int) error {
	return r.adjust(ctx, r.repo.WithTx(tx), communityID, delta)
}

func (r *Registry) adjust(ctx context.Context, repo CommunityRepository, communityID string, delta int) error {
	if delta == 0 {
		return nil
	}
	clamped, err := repo.AdjustMemberCount(ctx, communityID, delta)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust member count")
	}
	if clamped {
		r.metrics.IncMemberCountClamp()
		if r.logg != nil {
			logCtx := r.logg.WithFields(ctx, map[string]any{
				"community_id": communityID,
				"delta":        delta,
			})
			r.logg.Warn(logCtx, "member count would go negative; clamped to zero")
		}
	}
	return nil
}

// SetStatus suspends or reactivates a community.
func (r *Registry) SetStatus(ctx context.Context, communityID string, status enums.CommunityStatus) (*CommunityDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid community status %q", status))
	}
	affected, err := r.repo.SetStatus(ctx, communityID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update community status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}
	return r.Get(ctx, communityID)
}

func (r *Registry) nearest(ctx context.Context, origin geo.Coordinate, maxDistance float64, limit int) ([]DistanceRow, error) {
	if r.usePostGIS {
		return r.repo.ListActiveWithin(ctx, origin, maxDistance, "", 0, limit)
	}
	all, err := r.scanBox(ctx, origin, maxDistance, "")
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// scanBox prefilters on the bounding box and keeps rows whose exact distance
// is within maxDistance, nearest first.
func (r *Registry) scanBox(ctx context.Context, origin geo.Coordinate, maxDistance float64, text string) ([]DistanceRow, error) {
	candidates, err := r.repo.ListActiveInBox(ctx, geo.BoundingBox(origin, maxDistance), text)
	if err != nil {
		return nil, err
	}
	out := make([]DistanceRow, 0, len(candidates))
	for _, c := range candidates {
		d, ok := geo.Within(origin, c.Center(), maxDistance)
		if !ok {
			continue
		}
		out = append(out, DistanceRow{Community: c, DistanceMeters: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters == out[j].DistanceMeters {
			return out[i].CommunityID < out[j].CommunityID
		}
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out, nil
}

func pageOf(rows []DistanceRow, page pagination.Params) []DistanceRow {
	start := page.Offset()
	if start >= len(rows) {
		return nil
	}
	end := start + page.Normalize().Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func normalizeNearbyLimit(limit int) int {
	if limit <= 0 {
		return DefaultNearbyLimit
	}
	if limit > MaxNearbyLimit {
		return MaxNearbyLimit
	}
	return limit
}
