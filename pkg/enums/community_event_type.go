package enums

import "strings"

// CommunityEventType names the domain events published after a community or membership change commits.
type CommunityEventType string

const (
	EventCommunityCreated    CommunityEventType = "community.created"
	EventCommunitySuspended  CommunityEventType = "community.suspended"
	EventCommunityActivated  CommunityEventType = "community.activated"
	EventMembershipRequested CommunityEventType = "membership.requested"
	EventMembershipJoined    CommunityEventType = "membership.joined"
	EventMembershipApproved  CommunityEventType = "membership.approved"
	EventMembershipRejected  CommunityEventType = "membership.rejected"
	EventMembershipLeft      CommunityEventType = "membership.left"
	EventMembershipPromoted  CommunityEventType = "membership.promoted"
)

var communityEventTypes = newValues("community event type",
	EventCommunityCreated,
	EventCommunitySuspended,
	EventCommunityActivated,
	EventMembershipRequested,
	EventMembershipJoined,
	EventMembershipApproved,
	EventMembershipRejected,
	EventMembershipLeft,
	EventMembershipPromoted,
)

func (e CommunityEventType) String() string { return string(e) }

func (e CommunityEventType) IsValid() bool { return communityEventTypes.has(e) }

// Subject is the aggregate the event belongs to: "community" or "membership".
func (e CommunityEventType) Subject() string {
	subject, _, _ := strings.Cut(string(e), ".")
	return subject
}

func ParseCommunityEventType(value string) (CommunityEventType, error) {
	return communityEventTypes.parse(value)
}
