package communities

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/internal/events"
	"github.com/neighbridge/neighbridge-backend/internal/locations"
	"github.com/neighbridge/neighbridge-backend/internal/memberships"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
	"github.com/neighbridge/neighbridge-backend/pkg/maps"
	"github.com/neighbridge/neighbridge-backend/pkg/metrics"
	"github.com/neighbridge/neighbridge-backend/pkg/pagination"
)

const (
	lookupConcurrency = 8
	lookupChunkSize   = 10
)

type locationResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (locations.Resolution, error)
}

type reverseGeocoder interface {
	Reverse(ctx context.Context, at geo.Coordinate) (*maps.Place, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, event events.Event)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service orchestrates community creation, discovery and the membership workflow.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*CreateResult, error)
	DiscoverNearby(ctx context.Context, actorID uuid.UUID, input NearbyInput) (*NearbyResult, error)
	List(ctx context.Context, filters Filters, page pagination.Params) (*SearchResult, error)
	Get(ctx context.Context, communityID string) (*CommunityDTO, error)
	Join(ctx context.Context, actorID uuid.UUID, communityID string) (*memberships.MembershipDTO, error)
	PendingRequests(ctx context.Context, actorID uuid.UUID, communityID string) ([]memberships.PendingRequestDTO, error)
	Approve(ctx context.Context, actorID uuid.UUID, communityID, membershipID string) (*memberships.MembershipDTO, error)
	Reject(ctx context.Context, actorID uuid.UUID, communityID, membershipID string) (*memberships.MembershipDTO, error)
	Leave(ctx context.Context, actorID uuid.UUID, communityID string) error
	Role(ctx context.Context, actorID uuid.UUID, communityID string) (*RoleResult, error)
	MyCommunities(ctx context.Context, actorID uuid.UUID) ([]memberships.UserCommunityDTO, error)
	Promote(ctx context.Context, actorID uuid.UUID, communityID, membershipID string) (*memberships.MembershipDTO, error)
	Suspend(ctx context.Context, actorID uuid.UUID, communityID string) (*CommunityDTO, error)
	Activate(ctx context.Context, actorID uuid.UUID, communityID string) (*CommunityDTO, error)
}

// ServiceParams wire the community service.
type ServiceParams struct {
	Registry             *Registry
	Ledger               *memberships.Ledger
	Locations            locationResolver
	Geocoder             reverseGeocoder
	Tx                   txRunner
	Events               eventEmitter
	Metrics              *metrics.CommunityMetrics
	Logger               *logger.Logger
	JoinApprovalRequired bool
	JoinRequiresLocation bool
	NearbyMaxDistance    float64
	NearbyLimit          int
}

type service struct {
	registry             *Registry
	ledger               *memberships.Ledger
	locations            locationResolver
	geocoder             reverseGeocoder
	tx                   txRunner
	events               eventEmitter
	metrics              *metrics.CommunityMetrics
	logg                 *logger.Logger
	joinApprovalRequired bool
	joinRequiresLocation bool
	nearbyMaxDistance    float64
	nearbyLimit          int
}

// NewService builds the community service. Geocoder, Events and Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Registry == nil {
		return nil, fmt.Errorf("community registry required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("membership ledger required")
	}
	if params.Locations == nil {
		return nil, fmt.Errorf("location directory required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	maxDistance := params.NearbyMaxDistance
	if maxDistance <= 0 {
		maxDistance = DefaultNearbyMaxDistance
	}
	return &service{
		registry:             params.Registry,
		ledger:               params.Ledger,
		locations:            params.Locations,
		geocoder:             params.Geocoder,
		tx:                   params.Tx,
		events:               params.Events,
		metrics:              params.Metrics,
		logg:                 params.Logger,
		joinApprovalRequired: params.JoinApprovalRequired,
		joinRequiresLocation: params.JoinRequiresLocation,
		nearbyMaxDistance:    maxDistance,
		nearbyLimit:          normalizeNearbyLimit(params.NearbyLimit),
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*CreateResult, error) {
	spec := CreateSpec{
		Name:         input.Name,
		Description:  input.Description,
		CreatedBy:    actorID,
		Center:       input.Center,
		RadiusMeters: input.RadiusMeters,
	}
	if err := normalizeCreateSpec(&spec); err != nil {
		return nil, err
	}

	place := s.label(ctx, spec.Name, spec.Center, input)
	spec.LocationName = place.LocationName
	if place.Address != "" {
		address := place.Address
		spec.Address = &address
	}

	var result CreateResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		community, err := s.registry.WithTx(tx).Create(ctx, spec)
		if err != nil {
			return err
		}
		membership, err := s.ledger.WithTx(tx).RecordCreator(ctx, actorID, community.CommunityID)
		if err != nil {
			return err
		}
		result.Community = *community
		result.Membership = *membership
		return nil
	})
	if err != nil {
		return nil, typedOrDependency(err, "create community")
	}

	s.emit(ctx, enums.EventCommunityCreated, actorID, result.Community.CommunityID, communityData(result.Community))
	return &result, nil
}

// label picks the display location: caller supplied, geocoded, or the fallback label.
func (s *service) label(ctx context.Context, name string, center geo.Coordinate, input CreateInput) maps.Place {
	if locName := strings.TrimSpace(input.LocationName); locName != "" {
		place := maps.Place{LocationName: locName}
		if input.Address != nil {
			place.Address = strings.TrimSpace(*input.Address)
		}
		return place
	}
	if s.geocoder == nil {
		return maps.FallbackPlace(name, center)
	}
	place, err := s.geocoder.Reverse(ctx, center)
	if err != nil || place == nil || place.LocationName == "" {
		s.metrics.IncFallback("geocoder")
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "coordinate", center.String())
			if err == nil {
				err = fmt.Errorf("empty geocoder answer")
			}
			s.logg.Warn(logCtx, "reverse geocoding degraded; using fallback label: "+err.Error())
		}
		return maps.FallbackPlace(name, center)
	}
	return *place
}

func (s *service) DiscoverNearby(ctx context.Context, actorID uuid.UUID, input NearbyInput) (*NearbyResult, error) {
	if input.MaxDistance < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "maxDistance must be positive")
	}
	maxDistance := input.MaxDistance
	if maxDistance == 0 {
		maxDistance = s.nearbyMaxDistance
	}
	limit := input.Limit
	if limit == 0 {
		limit = s.nearbyLimit
	}

	resolution, err := s.locations.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	set, err := s.registry.FindNearby(ctx, resolution.Coordinate, maxDistance, limit)
	if err != nil {
		return nil, err
	}
	if err := s.decorateMemberships(ctx, actorID, set.Communities); err != nil {
		return nil, err
	}

	result := &NearbyResult{
		UserLocation:            resolution.Coordinate,
		Communities:             set.Communities,
		IsUsingFallbackLocation: resolution.IsFallback,
		FallbackResults:         set.Fallback,
	}
	if resolution.IsFallback {
		result.FallbackMessage = locations.FallbackMessage
		s.metrics.IncFallback("location")
	}
	return result, nil
}

// decorateMemberships fills IsMember/MembershipStatus with bounded concurrent lookups.
func (s *service) decorateMemberships(ctx context.Context, actorID uuid.UUID, items []NearbyCommunity) error {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]string, 0, len(items)/lookupChunkSize+1)
	for start := 0; start < len(items); start += lookupChunkSize {
		end := min(start+lookupChunkSize, len(items))
		ids := make([]string, 0, end-start)
		for _, item := range items[start:end] {
			ids = append(ids, item.CommunityID)
		}
		chunks = append(chunks, ids)
	}

	found := make([]map[string]memberships.RoleInfo, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, ids := range chunks {
		g.Go(func() error {
			infos, err := s.ledger.Lookup(gctx, actorID, ids)
			if err != nil {
				return err
			}
			found[i] = infos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range items {
		info, ok := found[i/lookupChunkSize][items[i].CommunityID]
		if !ok {
			continue
		}
		items[i].IsMember = info.IsMember
		items[i].MembershipStatus = info.Status
	}
	return nil
}

func (s *service) List(ctx context.Context, filters Filters, page pagination.Params) (*SearchResult, error) {
	return s.registry.Search(ctx, filters, page)
}

func (s *service) Get(ctx context.Context, communityID string) (*CommunityDTO, error) {
	return s.registry.GetActive(ctx, communityID)
}

func (s *service) Join(ctx context.Context, actorID uuid.UUID, communityID string) (*memberships.MembershipDTO, error) {
	community, err := s.registry.GetActive(ctx, communityID)
	if err != nil {
		return nil, err
	}

	existing, err := s.ledger.RoleOf(ctx, actorID, communityID)
	if err != nil {
		return nil, err
	}
	if existing.Status != nil {
		s.metrics.IncJoin("conflict")
		return nil, memberships.AlreadyMemberError(*existing.Status, *existing.Role)
	}

	resolution, err := s.locations.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if resolution.IsFallback && s.joinRequiresLocation {
		s.metrics.IncJoin("no_location")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "set your location before joining")
	}

	distance, ok := geo.Within(community.Location.Coordinates, resolution.Coordinate, float64(community.RadiusMeters))
	if !ok {
		s.metrics.IncJoin("out_of_range")
		return nil, outOfRangeError(geo.RoundMeters(distance), community.RadiusMeters)
	}

	status := enums.MembershipStatusActive
	eventType := enums.EventMembershipJoined
	if s.joinApprovalRequired {
		status = enums.MembershipStatusPending
		eventType = enums.EventMembershipRequested
	}
	membership, err := s.ledger.RequestMembership(ctx, memberships.RequestInput{
		UserID:      actorID,
		CommunityID: communityID,
		Role:        enums.MemberRoleMember,
		Status:      status,
	})
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
			s.metrics.IncJoin("conflict")
		}
		return nil, err
	}

	s.metrics.IncJoin(string(status))
	s.emit(ctx, eventType, actorID, communityID, membershipData(*membership))
	return membership, nil
}

// OutOfRangeDetails accompany a join rejected for distance.
type OutOfRangeDetails struct {
	UserDistance int `json:"userDistance"`
	MaxDistance  int `json:"maxDistance"`
}

func outOfRangeError(distance, radius int) error {
	return pkgerrors.New(pkgerrors.CodeOutOfRange, fmt.Sprintf("You are %dm away from this community (max: %dm)", distance, radius)).
		WithDetails(OutOfRangeDetails{UserDistance: distance, MaxDistance: radius})
}

func (s *service) PendingRequests(ctx context.Context, actorID uuid.UUID, communityID string) ([]memberships.PendingRequestDTO, error) {
	if _, err := s.registry.Get(ctx, communityID); err != nil {
		return nil, err
	}
	return s.ledger.ListPending(ctx, communityID, actorID)
}

func (s *service) Approve(ctx context.Context, actorID uuid.UUID, communityID, membershipID string) (*memberships.MembershipDTO, error) {
	if _, err := s.registry.Get(ctx, communityID); err != nil {
		return nil, err
	}
	membership, err := s.ledger.Approve(ctx, membershipID, communityID, actorID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, enums.EventMembershipApproved, actorID, communityID, membershipData(*membership))
	return membership, nil
}

func (s *service) Reject(ctx context.Context, actorID uuid.UUID, communityID, membershipID string) (*memberships.MembershipDTO, error) {
	if _, err := s.registry.Get(ctx, communityID); err != nil {
		return nil, err
	}
	membership, err := s.ledger.Reject(ctx, membershipID, communityID, actorID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, enums.EventMembershipRejected, actorID, communityID, membershipData(*membership))
	return membership, nil
}

func (s *service) Leave(ctx context.Context, actorID uuid.UUID, communityID string) error {
	community, err := s.registry.Get(ctx, communityID)
	if err != nil {
		return err
	}
	info, err := s.ledger.RoleOf(ctx, actorID, communityID)
	if err != nil {
		return err
	}
	if info.Role != nil && memberships.IsCreatorAdmin(actorID, community.CreatedBy, *info.Role) {
		return memberships.CreatorLeaveError()
	}
	membership, err := s.ledger.Leave(ctx, actorID, communityID, community.CreatedBy)
	if err != nil {
		return err
	}
	s.emit(ctx, enums.EventMembershipLeft, actorID, communityID, membershipData(*membership))
	return nil
}

func (s *service) Role(ctx context.Context, actorID uuid.UUID, communityID string) (*RoleResult, error) {
	community, err := s.registry.Get(ctx, communityID)
	if err != nil {
		return nil, err
	}
	info, err := s.ledger.RoleOf(ctx, actorID, communityID)
	if err != nil {
		return nil, err
	}
	return &RoleResult{RoleInfo: info, CommunityID: community.CommunityID, CommunityName: community.Name}, nil
}

func (s *service) MyCommunities(ctx context.Context, actorID uuid.UUID) ([]memberships.UserCommunityDTO, error) {
	return s.ledger.ListUserCommunities(ctx, actorID)
}

func (s *service) Promote(ctx context.Context, actorID uuid.UUID, communityID, membershipID string) (*memberships.MembershipDTO, error) {
	if _, err := s.registry.GetActive(ctx, communityID); err != nil {
		return nil, err
	}
	membership, err := s.ledger.Promote(ctx, membershipID, communityID, actorID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, enums.EventMembershipPromoted, actorID, communityID, membershipData(*membership))
	return membership, nil
}

func (s *service) Suspend(ctx context.Context, actorID uuid.UUID, communityID string) (*CommunityDTO, error) {
	return s.setStatus(ctx, actorID, communityID, enums.CommunityStatusSuspended, enums.EventCommunitySuspended)
}

func (s *service) Activate(ctx context.Context, actorID uuid.UUID, communityID string) (*CommunityDTO, error) {
	return s.setStatus(ctx, actorID, communityID, enums.CommunityStatusActive, enums.EventCommunityActivated)
}

func (s *service) setStatus(ctx context.Context, actorID uuid.UUID, communityID string, status enums.CommunityStatus, eventType enums.CommunityEventType) (*CommunityDTO, error) {
	community, err := s.registry.SetStatus(ctx, communityID, status)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, eventType, actorID, communityID, communityData(*community))
	return community, nil
}

func (s *service) emit(ctx context.Context, eventType enums.CommunityEventType, actorID uuid.UUID, communityID string, data any) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, events.Event{
		Type:        eventType,
		ActorID:     actorID,
		CommunityID: communityID,
		Data:        data,
	})
}

func communityData(c CommunityDTO) events.CommunityData {
	return events.CommunityData{
		Name:         c.Name,
		Status:       c.Status,
		CenterLat:    c.Location.Coordinates.Latitude,
		CenterLng:    c.Location.Coordinates.Longitude,
		RadiusMeters: c.RadiusMeters,
	}
}

func membershipData(m memberships.MembershipDTO) events.MembershipData {
	return events.MembershipData{
		MembershipID: m.MembershipID,
		UserID:       m.UserID,
		Role:         m.Role,
		Status:       m.Status,
	}
}

func typedOrDependency(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
