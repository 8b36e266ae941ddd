package enums

type CommunityStatus string

const (
	CommunityStatusActive    CommunityStatus = "active"
	CommunityStatusSuspended CommunityStatus = "suspended"
)

var communityStatuses = newValues("community status", CommunityStatusActive, CommunityStatusSuspended)

func (c CommunityStatus) String() string { return string(c) }

func (c CommunityStatus) IsValid() bool { return communityStatuses.has(c) }

// Discoverable reports whether communities in this status show up in search and nearby results.
func (c CommunityStatus) Discoverable() bool { return c == CommunityStatusActive }

func ParseCommunityStatus(value string) (CommunityStatus, error) {
	return communityStatuses.parse(value)
}
