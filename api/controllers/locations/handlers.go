package locations

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/api/middleware"
	"github.com/neighbridge/neighbridge-backend/api/responses"
	"github.com/neighbridge/neighbridge-backend/api/validators"
	internallocations "github.com/neighbridge/neighbridge-backend/internal/locations"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

type updateLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Address   string   `json:"address,omitempty" validate:"max=200"`
	City      string   `json:"city,omitempty" validate:"max=100"`
	State     string   `json:"state,omitempty" validate:"max=100"`
	Country   string   `json:"country,omitempty" validate:"max=100"`
}

// Get returns the caller's stored location.
func Get(svc internallocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}
		loc, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loc)
	}
}

// Update replaces the caller's stored location.
func Update(svc internallocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}

		var body updateLocationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loc, err := svc.Update(r.Context(), userID, internallocations.UpdateInput{
			Coordinate: geo.Coordinate{Latitude: *body.Latitude, Longitude: *body.Longitude},
			Address:    body.Address,
			City:       body.City,
			State:      body.State,
			Country:    body.Country,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loc)
	}
}

// Nearby lists other users within radius kilometres of the caller.
func Nearby(svc internallocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := actor(w, r, svc, logg)
		if !ok {
			return
		}

		radius, err := validators.ParseQueryFloat(r, "radius",
			internallocations.DefaultNearbyRadiusKm,
			internallocations.MinNearbyRadiusKm,
			internallocations.MaxNearbyRadiusKm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		users, err := svc.FindNearbyUsers(r.Context(), userID, radius)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"users":    users,
			"radiusKm": radius,
		})
	}
}

func actor(w http.ResponseWriter, r *http.Request, svc internallocations.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
		return uuid.Nil, false
	}
	userID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}
