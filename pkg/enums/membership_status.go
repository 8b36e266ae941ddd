package enums

// MembershipStatus is where a membership sits in the join flow.
// Pending rows await an admin; active rows count toward the member total.
type MembershipStatus string

const (
	MembershipStatusPending   MembershipStatus = "pending"
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusSuspended MembershipStatus = "suspended"
)

var membershipStatuses = newValues("membership status",
	MembershipStatusPending,
	MembershipStatusActive,
	MembershipStatusSuspended,
)

func (m MembershipStatus) String() string { return string(m) }

func (m MembershipStatus) IsValid() bool { return membershipStatuses.has(m) }

// Counted reports whether the membership contributes to member_count.
func (m MembershipStatus) Counted() bool { return m == MembershipStatusActive }

// CanTransitionTo reports whether the ledger may move a membership from m to next.
// Leaving or rejecting deletes the row, so those are not transitions.
func (m MembershipStatus) CanTransitionTo(next MembershipStatus) bool {
	switch m {
	case MembershipStatusPending:
		return next == MembershipStatusActive
	case MembershipStatusActive:
		return next == MembershipStatusSuspended
	case MembershipStatusSuspended:
		return next == MembershipStatusActive
	}
	return false
}

func ParseMembershipStatus(value string) (MembershipStatus, error) {
	return membershipStatuses.parse(value)
}
