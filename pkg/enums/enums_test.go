package enums

import "testing"

func TestParseMemberRole(t *testing.T) {
	role, err := ParseMemberRole("communityAdmin")
	if err != nil || role != MemberRoleCommunityAdmin {
		t.Fatalf("expected communityAdmin, got %q err=%v", role, err)
	}
	if _, err := ParseMemberRole("owner"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestMembershipStatusIsValid(t *testing.T) {
	for _, status := range []MembershipStatus{MembershipStatusPending, MembershipStatusActive, MembershipStatusSuspended} {
		if !status.IsValid() {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	if MembershipStatus("invited").IsValid() {
		t.Fatal("expected invited to be invalid")
	}
}

func TestParseCommunityStatus(t *testing.T) {
	if _, err := ParseCommunityStatus("archived"); err == nil {
		t.Fatal("expected archived to be rejected")
	}
	status, err := ParseCommunityStatus("suspended")
	if err != nil || status != CommunityStatusSuspended {
		t.Fatalf("unexpected parse result %q err=%v", status, err)
	}
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	if err != nil || role != UserRoleAdmin {
		t.Fatalf("expected admin, got %q err=%v", role, err)
	}
	if UserRole("root").IsValid() {
		t.Fatal("expected root to be invalid")
	}
}

func TestCommunityEventTypeIsValid(t *testing.T) {
	if !EventMembershipApproved.IsValid() {
		t.Fatal("expected approved event to be valid")
	}
	if _, err := ParseCommunityEventType("membership.deleted"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
}

func TestMembershipStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to MembershipStatus
		want     bool
	}{
		{MembershipStatusPending, MembershipStatusActive, true},
		{MembershipStatusPending, MembershipStatusSuspended, false},
		{MembershipStatusActive, MembershipStatusPending, false},
		{MembershipStatusActive, MembershipStatusSuspended, true},
		{MembershipStatusSuspended, MembershipStatusActive, true},
		{MembershipStatus("invited"), MembershipStatusActive, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if !MembershipStatusActive.Counted() || MembershipStatusPending.Counted() {
		t.Fatal("only active memberships are counted")
	}
}

func TestUserRoleAtLeast(t *testing.T) {
	if !UserRoleAdmin.AtLeast(UserRoleModerator) {
		t.Fatal("admin should satisfy moderator")
	}
	if UserRoleUser.AtLeast(UserRoleModerator) {
		t.Fatal("user should not satisfy moderator")
	}
	if UserRole("root").AtLeast(UserRole("")) {
		t.Fatal("unknown roles never satisfy a requirement")
	}
}

func TestEventSubject(t *testing.T) {
	if EventCommunitySuspended.Subject() != "community" {
		t.Fatalf("unexpected subject %q", EventCommunitySuspended.Subject())
	}
	if EventMembershipPromoted.Subject() != "membership" {
		t.Fatalf("unexpected subject %q", EventMembershipPromoted.Subject())
	}
	if !MemberRoleCommunityAdmin.CanModerate() || MemberRoleMember.CanModerate() {
		t.Fatal("only community admins moderate")
	}
}
