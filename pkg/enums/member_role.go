package enums

// MemberRole is the role a user holds inside one community.
type MemberRole string

const (
	MemberRoleMember         MemberRole = "member"
	MemberRoleCommunityAdmin MemberRole = "communityAdmin"
)

var memberRoles = newValues("member role", MemberRoleMember, MemberRoleCommunityAdmin)

func (m MemberRole) String() string { return string(m) }

func (m MemberRole) IsValid() bool { return memberRoles.has(m) }

// CanModerate reports whether the role may approve, reject or promote members.
func (m MemberRole) CanModerate() bool { return m == MemberRoleCommunityAdmin }

func ParseMemberRole(value string) (MemberRole, error) {
	return memberRoles.parse(value)
}
