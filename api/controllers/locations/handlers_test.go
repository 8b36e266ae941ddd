package locations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/api/middleware"
	internallocations "github.com/neighbridge/neighbridge-backend/internal/locations"
	pkgauth "github.com/neighbridge/neighbridge-backend/pkg/auth"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
)

type stubLocations struct {
	update  func(ctx context.Context, userID uuid.UUID, input internallocations.UpdateInput) (*internallocations.LocationDTO, error)
	nearby  func(ctx context.Context, userID uuid.UUID, radiusKm float64) ([]internallocations.NearbyUser, error)
	missing bool
}

func (s *stubLocations) Resolve(ctx context.Context, userID uuid.UUID) (internallocations.Resolution, error) {
	return internallocations.Resolution{}, nil
}

func (s *stubLocations) Get(ctx context.Context, userID uuid.UUID) (*internallocations.LocationDTO, error) {
	if s.missing {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user location not set")
	}
	return &internallocations.LocationDTO{UserID: userID}, nil
}

func (s *stubLocations) Update(ctx context.Context, userID uuid.UUID, input internallocations.UpdateInput) (*internallocations.LocationDTO, error) {
	return s.update(ctx, userID, input)
}

func (s *stubLocations) FindNearbyUsers(ctx context.Context, userID uuid.UUID, radiusKm float64) ([]internallocations.NearbyUser, error) {
	return s.nearby(ctx, userID, radiusKm)
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), pkgauth.Identity{UserID: userID}))
}

func TestGetMissingLocationIs404(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/me/location", nil), uuid.New())
	resp := httptest.NewRecorder()
	Get(&stubLocations{missing: true}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestUpdatePassesCoordinate(t *testing.T) {
	userID := uuid.New()
	var got internallocations.UpdateInput
	svc := &stubLocations{update: func(ctx context.Context, id uuid.UUID, input internallocations.UpdateInput) (*internallocations.LocationDTO, error) {
		if id != userID {
			t.Fatalf("unexpected user %s", id)
		}
		got = input
		return &internallocations.LocationDTO{UserID: id, Coordinates: input.Coordinate}, nil
	}}

	body := `{"latitude":0,"longitude":-0.1276,"city":"London"}`
	req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/users/me/location", strings.NewReader(body)), userID)
	resp := httptest.NewRecorder()
	Update(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Coordinate.Latitude != 0 || got.Coordinate.Longitude != -0.1276 || got.City != "London" {
		t.Fatalf("unexpected input %+v", got)
	}
}

func TestUpdateRejectsOutOfRangeLatitude(t *testing.T) {
	svc := &stubLocations{update: func(context.Context, uuid.UUID, internallocations.UpdateInput) (*internallocations.LocationDTO, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	req := authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"latitude":91,"longitude":0}`)), uuid.New())
	resp := httptest.NewRecorder()
	Update(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestNearbyDefaultsRadius(t *testing.T) {
	var gotRadius float64
	svc := &stubLocations{nearby: func(ctx context.Context, id uuid.UUID, radiusKm float64) ([]internallocations.NearbyUser, error) {
		gotRadius = radiusKm
		return []internallocations.NearbyUser{}, nil
	}}

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/nearby", nil), uuid.New())
	resp := httptest.NewRecorder()
	Nearby(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotRadius != internallocations.DefaultNearbyRadiusKm {
		t.Fatalf("expected default radius, got %v", gotRadius)
	}

	bad := authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/nearby?radius=0.05", nil), uuid.New())
	resp = httptest.NewRecorder()
	Nearby(svc, nil).ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for radius below minimum, got %d", resp.Code)
	}
}
