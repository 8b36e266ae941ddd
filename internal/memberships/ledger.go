package memberships

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neighbridge/neighbridge-backend/pkg/db"
	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

const membershipIDPrefix = "memb_"

const maxLeaveAttempts = 3

var errMembershipChanged = errors.New("membership changed concurrently")

const (
	msgPendingApproval = "Your membership request is pending approval from the community admin"
	msgAlreadyMember   = "You are already a member of this community"
	msgNotMember       = "you are not a member of this community"
	msgCreatorLeave    = "community creator cannot leave; transfer admin rights first"
	msgPendingNotFound = "pending membership request not found"
	msgNotAdmin        = "only community admins can manage this community"
)

// NewMembershipID returns a fresh opaque membership identifier.
func NewMembershipID() string {
	return membershipIDPrefix + uuid.NewString()
}

// ConflictDetails accompany the already-a-member conflict.
type ConflictDetails struct {
	MembershipStatus enums.MembershipStatus `json:"membershipStatus"`
	Role             enums.MemberRole       `json:"role"`
}

// LedgerParams wire the ledger's collaborators.
type LedgerParams struct {
	Repo    MembershipRepository
	Tx      txRunner
	Counter MemberCounter
	Logger  *logger.Logger
}

// Ledger owns membership rows and their lifecycle. Every transition that
// changes the number of active members adjusts the community counter in the
// same transaction.
type Ledger struct {
	repo    MembershipRepository
	tx      txRunner
	counter MemberCounter
	logg    *logger.Logger
	now     func() time.Time
}

// NewLedger builds a membership ledger.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("membership repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Counter == nil {
		return nil, fmt.Errorf("member counter required")
	}
	return &Ledger{
		repo:    params.Repo,
		tx:      params.Tx,
		counter: params.Counter,
		logg:    params.Logger,
		now:     utcNow,
	}, nil
}

// WithTx returns a ledger whose reads, writes and counter updates all run on tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	clone := *l
	clone.repo = l.repo.WithTx(tx)
	clone.tx = boundTx{tx: tx}
	return &clone
}

// RequestMembership inserts a membership for the pair. Active requests
// increment the member count atomically with the insert.
func (l *Ledger) RequestMembership(ctx context.Context, input RequestInput) (*MembershipDTO, error) {
	if input.UserID == uuid.Nil || input.CommunityID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user and community are required")
	}
	if input.Role == "" {
		input.Role = enums.MemberRoleMember
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid member role %q", input.Role))
	}
	if input.Status != enums.MembershipStatusPending && input.Status != enums.MembershipStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid membership status %q", input.Status))
	}

	if existing, err := l.repo.Find(ctx, input.UserID, input.CommunityID); err == nil {
		return nil, AlreadyMemberError(existing.Status, existing.Role)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing membership")
	}

	now := l.now()
	membership := &models.Membership{
		MembershipID: NewMembershipID(),
		UserID:       input.UserID,
		CommunityID:  input.CommunityID,
		Role:         input.Role,
		Status:       input.Status,
		JoinedAt:     now,
	}

	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := l.repo.WithTx(tx).Create(ctx, membership); err != nil {
			return err
		}
		if membership.Status == enums.MembershipStatusActive {
			return l.counter.AdjustMemberCountTx(ctx, tx, membership.CommunityID, 1)
		}
		return nil
	})
	if err != nil {
		// The random membership id cannot collide, so any unique violation is the pair index.
		if db.IsUniqueViolation(err, "") {
			if existing, findErr := l.repo.Find(ctx, input.UserID, input.CommunityID); findErr == nil {
				return nil, AlreadyMemberError(existing.Status, existing.Role)
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyMember)
		}
		if db.IsForeignKeyViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "community not found")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
	}
	return ToDTO(membership), nil
}

// RecordCreator stores the creator's admin membership. The caller seeds the
// community counter with the creator already included.
func (l *Ledger) RecordCreator(ctx context.Context, creatorID uuid.UUID, communityID string) (*MembershipDTO, error) {
	now := l.now()
	approver := creatorID
	membership := &models.Membership{
		MembershipID: NewMembershipID(),
		UserID:       creatorID,
		CommunityID:  communityID,
		Role:         enums.MemberRoleCommunityAdmin,
		Status:       enums.MembershipStatusActive,
		JoinedAt:     now,
		ApprovedBy:   &approver,
		ApprovedAt:   &now,
	}
	if err := l.repo.Create(ctx, membership); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, msgAlreadyMember)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create creator membership")
	}
	return ToDTO(membership), nil
}

// Approve activates a pending request. Only one of several concurrent
// approvals of the same request wins and increments the counter.
func (l *Ledger) Approve(ctx context.Context, membershipID, communityID string, approverID uuid.UUID) (*MembershipDTO, error) {
	if err := l.requireAdmin(ctx, approverID, communityID); err != nil {
		return nil, err
	}

	now := l.now()
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := l.repo.WithTx(tx).ActivatePending(ctx, membershipID, communityID, approverID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve membership")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgPendingNotFound)
		}
		return l.counter.AdjustMemberCountTx(ctx, tx, communityID, 1)
	})
	if err != nil {
		return nil, asTyped(err, "approve membership")
	}

	membership, err := l.repo.FindByID(ctx, membershipID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approved membership")
	}
	return ToDTO(membership), nil
}

// Reject deletes a pending request without touching the counter.
func (l *Ledger) Reject(ctx context.Context, membershipID, communityID string, approverID uuid.UUID) (*MembershipDTO, error) {
	if err := l.requireAdmin(ctx, approverID, communityID); err != nil {
		return nil, err
	}

	membership, err := l.repo.FindByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPendingNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	affected, err := l.repo.DeleteWithStatus(ctx, membershipID, communityID, enums.MembershipStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject membership")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPendingNotFound)
	}
	return ToDTO(membership), nil
}

// Leave removes the user's membership. The creator holding the admin role
// cannot leave. Only an active membership decrements the counter; removing a
// pending one cancels the request. The delete only matches the status that
// was read; a row changed in between is read again.
func (l *Ledger) Leave(ctx context.Context, userID uuid.UUID, communityID string, creatorID uuid.UUID) (*MembershipDTO, error) {
	for attempt := 0; attempt < maxLeaveAttempts; attempt++ {
		membership, err := l.repo.Find(ctx, userID, communityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgNotMember)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
		}
		if IsCreatorAdmin(membership.UserID, creatorID, membership.Role) {
			return nil, CreatorLeaveError()
		}

		err = l.tx.WithTx(ctx, func(tx *gorm.DB) error {
			affected, err := l.repo.WithTx(tx).DeleteWithStatus(ctx, membership.MembershipID, communityID, membership.Status)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete membership")
			}
			if affected == 0 {
				return errMembershipChanged
			}
			if membership.Status.Counted() {
				return l.counter.AdjustMemberCountTx(ctx, tx, communityID, -1)
			}
			return nil
		})
		if errors.Is(err, errMembershipChanged) {
			continue
		}
		if err != nil {
			return nil, asTyped(err, "leave community")
		}
		return ToDTO(membership), nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "membership changed while leaving; retry")
}

// Promote grants the community admin role to an active member.
func (l *Ledger) Promote(ctx context.Context, membershipID, communityID string, actorID uuid.UUID) (*MembershipDTO, error) {
	if err := l.requireAdmin(ctx, actorID, communityID); err != nil {
		return nil, err
	}

	affected, err := l.repo.SetRole(ctx, membershipID, communityID, enums.MemberRoleMember, enums.MemberRoleCommunityAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote member")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active member not found")
	}

	membership, err := l.repo.FindByID(ctx, membershipID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promoted membership")
	}
	return ToDTO(membership), nil
}

// RoleOf reports the user's role and status in the community.
func (l *Ledger) RoleOf(ctx context.Context, userID uuid.UUID, communityID string) (RoleInfo, error) {
	membership, err := l.repo.Find(ctx, userID, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoleInfo{}, nil
		}
		return RoleInfo{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	return roleInfoFromModel(membership), nil
}

// Lookup returns the user's role info keyed by community id. Communities the
// user has no membership in are absent from the map.
func (l *Ledger) Lookup(ctx context.Context, userID uuid.UUID, communityIDs []string) (map[string]RoleInfo, error) {
	rows, err := l.repo.ListForUser(ctx, userID, communityIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup memberships")
	}
	out := make(map[string]RoleInfo, len(rows))
	for i := range rows {
		out[rows[i].CommunityID] = roleInfoFromModel(&rows[i])
	}
	return out, nil
}

// ListPending returns the pending requests of a community to one of its admins.
func (l *Ledger) ListPending(ctx context.Context, communityID string, actorID uuid.UUID) ([]PendingRequestDTO, error) {
	if err := l.requireAdmin(ctx, actorID, communityID); err != nil {
		return nil, err
	}
	rows, err := l.repo.ListPending(ctx, communityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending memberships")
	}
	return pendingFromModels(rows), nil
}

// ListUserCommunities returns the communities the user is an active member of.
func (l *Ledger) ListUserCommunities(ctx context.Context, userID uuid.UUID) ([]UserCommunityDTO, error) {
	rows, err := l.repo.ListUserCommunities(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user communities")
	}
	return rows, nil
}

func (l *Ledger) requireAdmin(ctx context.Context, userID uuid.UUID, communityID string) error {
	membership, err := l.repo.Find(ctx, userID, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, msgNotAdmin)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	if membership.Role != enums.MemberRoleCommunityAdmin || membership.Status != enums.MembershipStatusActive {
		return pkgerrors.New(pkgerrors.CodeForbidden, msgNotAdmin)
	}
	return nil
}

// AlreadyMemberError is the conflict returned when the pair already has a membership.
func AlreadyMemberError(status enums.MembershipStatus, role enums.MemberRole) error {
	msg := msgAlreadyMember
	if status == enums.MembershipStatusPending {
		msg = msgPendingApproval
	}
	return pkgerrors.New(pkgerrors.CodeConflict, msg).WithDetails(ConflictDetails{
		MembershipStatus: status,
		Role:             role,
	})
}

// IsCreatorAdmin reports whether userID is the community creator still holding the admin role.
func IsCreatorAdmin(userID, creatorID uuid.UUID, role enums.MemberRole) bool {
	return role == enums.MemberRoleCommunityAdmin && userID == creatorID
}

// CreatorLeaveError is the policy violation returned when the creator tries to leave.
func CreatorLeaveError() error {
	return pkgerrors.New(pkgerrors.CodePolicy, msgCreatorLeave)
}

func asTyped(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
