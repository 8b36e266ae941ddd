package communities

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/api/middleware"
	"github.com/neighbridge/neighbridge-backend/api/responses"
	"github.com/neighbridge/neighbridge-backend/api/validators"
	internalcommunities "github.com/neighbridge/neighbridge-backend/internal/communities"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
	"github.com/neighbridge/neighbridge-backend/pkg/pagination"
)

const maxSearchLength = 100

// Create registers a community centred on the submitted coordinate.
func Create(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}

		var body createCommunityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), actorID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

// List searches active communities, nearest first when lat/lng are supplied.
func List(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actor(w, r, svc, logg); !ok {
			return
		}

		origin, err := validators.ParseQueryCoordinate(r, "lat", "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		maxDistance, err := validators.ParseQueryFloat(r, "maxDistance",
			internalcommunities.DefaultSearchMaxDistance,
			internalcommunities.MinSearchMaxDistance,
			internalcommunities.MaxSearchMaxDistance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := internalcommunities.Filters{
			Origin:      origin,
			MaxDistance: maxDistance,
			Text:        validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLength),
		}
		result, err := svc.List(r.Context(), filters, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Nearby lists communities around the caller's resolved location.
func Nearby(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}

		maxDistance, err := validators.ParseQueryFloat(r, "maxDistance", 0, 1, internalcommunities.MaxSearchMaxDistance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, internalcommunities.MaxNearbyLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DiscoverNearby(r.Context(), actorID, internalcommunities.NearbyInput{
			MaxDistance: maxDistance,
			Limit:       limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Mine lists the caller's active memberships.
func Mine(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		list, err := svc.MyCommunities(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"communities": list})
	}
}

func Detail(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actor(w, r, svc, logg); !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		community, err := svc.Get(r.Context(), communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, community)
	}
}

// Role answers whether the caller belongs to the community and in which role.
func Role(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		role, err := svc.Role(r.Context(), actorID, communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, role)
	}
}

// Join requests membership. Pending requests answer 202, immediate joins 201.
func Join(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		membership, err := svc.Join(r.Context(), actorID, communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if membership.Status == enums.MembershipStatusPending {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, membership)
	}
}

func Leave(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Leave(r.Context(), actorID, communityID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"communityId": communityID, "left": true})
	}
}

// PendingRequests lists join requests awaiting a community admin.
func PendingRequests(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.PendingRequests(r.Context(), actorID, communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": list})
	}
}

// DecideRequest approves or rejects a pending membership.
func DecideRequest(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		membershipID, err := validators.MembershipIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body membershipDecisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCommunityID(ctx, communityID)
			ctx = logg.WithMembershipID(ctx, membershipID)
		}

		switch strings.ToLower(body.Action) {
		case requestActionApprove:
			membership, err := svc.Approve(ctx, actorID, communityID, membershipID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, membership)
		case requestActionReject:
			membership, err := svc.Reject(ctx, actorID, communityID, membershipID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, membership)
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "action must be approve or reject"))
		}
	}
}

// Promote makes an active member a community admin.
func Promote(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		membershipID, err := validators.MembershipIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		membership, err := svc.Promote(r.Context(), actorID, communityID, membershipID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, membership)
	}
}

// AdminSuspend hides a community from discovery and blocks joins.
func AdminSuspend(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		community, err := svc.Suspend(r.Context(), actorID, communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, community)
	}
}

func AdminActivate(svc internalcommunities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		communityID, ok := communityParam(w, r, logg)
		if !ok {
			return
		}
		community, err := svc.Activate(r.Context(), actorID, communityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, community)
	}
}

func actor(w http.ResponseWriter, r *http.Request, svc internalcommunities.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "community service unavailable"))
		return uuid.Nil, false
	}
	actorID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return actorID, true
}

func communityParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	communityID, err := validators.CommunityIDParam(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return "", false
	}
	return communityID, true
}
