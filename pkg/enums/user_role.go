package enums

// UserRole is the platform-wide role carried in the access token.
type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

var userRoles = newValues("user role", UserRoleUser, UserRoleModerator, UserRoleAdmin)

func (u UserRole) String() string { return string(u) }

func (u UserRole) IsValid() bool { return userRoles.has(u) }

// rank orders platform roles; unknown roles rank below user.
func (u UserRole) rank() int {
	switch u {
	case UserRoleUser:
		return 1
	case UserRoleModerator:
		return 2
	case UserRoleAdmin:
		return 3
	}
	return 0
}

// AtLeast reports whether u grants everything min grants.
func (u UserRole) AtLeast(min UserRole) bool {
	return u.rank() > 0 && u.rank() >= min.rank()
}

func ParseUserRole(value string) (UserRole, error) {
	return userRoles.parse(value)
}
