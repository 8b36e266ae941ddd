package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/neighbridge/neighbridge-backend/pkg/db/models"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
	"github.com/neighbridge/neighbridge-backend/pkg/metrics"
)

const (
	MemberCountReconcileJobName = "member-count-reconcile"
	defaultReconcileBatchSize   = 500
)

type communityBatchStore interface {
	ListBatch(ctx context.Context, afterID string, limit int) ([]models.Community, error)
	SetMemberCount(ctx context.Context, communityID string, count int64) error
}

type activeMemberCounter interface {
	CountActiveByCommunity(ctx context.Context, communityIDs []string) (map[string]int64, error)
}

// MemberCountReconcileJobParams wire the reconciliation job.
type MemberCountReconcileJobParams struct {
	Logger      *logger.Logger
	Communities communityBatchStore
	Memberships activeMemberCounter
	Metrics     *metrics.CommunityMetrics
	BatchSize   int
	// Every spaces runs out; zero runs on every cron tick.
	Every time.Duration
}

// NewMemberCountReconcileJob builds the job that rewrites cached member
// counts that disagree with the number of active memberships.
func NewMemberCountReconcileJob(params MemberCountReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Communities == nil {
		return nil, fmt.Errorf("community repository required")
	}
	if params.Memberships == nil {
		return nil, fmt.Errorf("membership repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &memberCountReconcileJob{
		logg:        params.Logger,
		communities: params.Communities,
		memberships: params.Memberships,
		metrics:     params.Metrics,
		batchSize:   batch,
		every:       params.Every,
	}, nil
}

type memberCountReconcileJob struct {
	logg        *logger.Logger
	communities communityBatchStore
	memberships activeMemberCounter
	metrics     *metrics.CommunityMetrics
	batchSize   int
	every       time.Duration
}

func (j *memberCountReconcileJob) Name() string { return MemberCountReconcileJobName }

func (j *memberCountReconcileJob) Every() time.Duration { return j.every }

func (j *memberCountReconcileJob) Run(ctx context.Context) error {
	var (
		after   string
		scanned int
		drifted int
		errs    error
	)
	for {
		batch, err := j.communities.ListBatch(ctx, after, j.batchSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list communities after %q: %w", after, err))
		}
		if len(batch) == 0 {
			break
		}
		after = batch[len(batch)-1].CommunityID
		scanned += len(batch)

		ids := make([]string, 0, len(batch))
		for _, c := range batch {
			ids = append(ids, c.CommunityID)
		}
		counts, err := j.memberships.CountActiveByCommunity(ctx, ids)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("count active members: %w", err))
			continue
		}

		for _, c := range batch {
			actual := counts[c.CommunityID]
			if int64(c.MemberCount) == actual {
				continue
			}
			drifted++
			driftCtx := j.logg.WithFields(ctx, map[string]any{
				"community_id": c.CommunityID,
				"stored":       c.MemberCount,
				"actual":       actual,
			})
			j.logg.Warn(driftCtx, "member count drift detected")
			if err := j.communities.SetMemberCount(ctx, c.CommunityID, actual); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("reset member count for %s: %w", c.CommunityID, err))
			}
		}
		if len(batch) < j.batchSize {
			break
		}
	}

	j.metrics.AddMemberCountDrift(drifted)
	summaryCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": scanned,
		"drifted": drifted,
	})
	j.logg.Info(summaryCtx, "member count reconciliation finished")
	return errs
}
