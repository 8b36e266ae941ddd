package validators

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
)

var (
	communityIDRe  = regexp.MustCompile(`^comm_[0-9a-f-]{36}$`)
	membershipIDRe = regexp.MustCompile(`^memb_[0-9a-f-]{36}$`)
)

// CommunityIDParam reads and validates the {communityId} path parameter.
func CommunityIDParam(r *http.Request) (string, error) {
	return pathID(r, "communityId", communityIDRe, "invalid community ID")
}

// MembershipIDParam reads and validates the {membershipId} path parameter.
func MembershipIDParam(r *http.Request) (string, error) {
	return pathID(r, "membershipId", membershipIDRe, "invalid membership ID")
}

func pathID(r *http.Request, key string, re *regexp.Regexp, msg string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, key))
	if !re.MatchString(value) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
