// Package reconcile repairs match state left behind by interrupted
// promotions. Promotion writes span two user documents without a transaction,
// so a crash in the middle leaves either a pending journal entry or an
// asymmetric pair; both are converged here.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/osavenko/matcha/backend/internal/domain/edge"
	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
	interestsvc "github.com/osavenko/matcha/backend/internal/services/interest"
	"github.com/osavenko/matcha/backend/internal/store"
)

const defaultGrace = 5 * time.Minute

type Store interface {
	GetProfile(ctx context.Context, id string) (model.UserProfile, error)
	GetAllProfiles(ctx context.Context) (store.ProfileIterator, error)
	BatchWrite(ctx context.Context, ops []store.Operation) ([]store.OpResult, error)
}

type Journal interface {
	ListPending(ctx context.Context, olderThan time.Time) ([]store.JournalEntry, error)
	Complete(ctx context.Context, pairKey string) error
}

type Notifier interface {
	Notify(ctx context.Context, event model.MatchEvent) error
}

type Report struct {
	ReplayedPromotions int
	RepairedPairs      int
}

type Job struct {
	store    Store
	journal  Journal
	notifier Notifier
	grace    time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(st Store, journal Journal, notifier Notifier, grace time.Duration, logger *zap.Logger) *Job {
	if grace <= 0 {
		grace = defaultGrace
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		store:    st,
		journal:  journal,
		notifier: notifier,
		grace:    grace,
		now:      time.Now,
		logger:   logger,
	}
}

func (j *Job) Run(ctx context.Context) (Report, error) {
	var report Report

	replayed, err := j.replayPending(ctx)
	if err != nil {
		return report, err
	}
	report.ReplayedPromotions = replayed

	repaired, err := j.repairAsymmetric(ctx)
	if err != nil {
		return report, err
	}
	report.RepairedPairs = repaired

	if report.ReplayedPromotions > 0 || report.RepairedPairs > 0 {
		j.logger.Info("reconcile pass completed",
			zap.Int("replayed_promotions", report.ReplayedPromotions),
			zap.Int("repaired_pairs", report.RepairedPairs),
		)
	}
	return report, nil
}

// replayPending re-applies the projection of every journal entry older than
// the grace period. The writes are set-idempotent, so replaying a promotion
// that partially or fully landed converges to the same terminal state.
func (j *Job) replayPending(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.grace)
	entries, err := j.journal.ListPending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list pending promotions: %w", err)
	}

	replayed := 0
	for _, entry := range entries {
		ops := interestsvc.PromotionOps(entry.UserA, entry.UserB, entry.Kind)
		if _, err := j.store.BatchWrite(ctx, ops); err != nil {
			j.logger.Warn("replay promotion failed",
				zap.String("pair", entry.PairKey),
				zap.Error(err),
			)
			continue
		}
		if err := j.journal.Complete(ctx, entry.PairKey); err != nil {
			j.logger.Warn("complete replayed promotion failed",
				zap.String("pair", entry.PairKey),
				zap.Error(err),
			)
			continue
		}
		// A pending entry means the original promotion never reached its
		// emission step. Re-emit here; promotions that did emit are absorbed
		// by the dedup key.
		j.emit(ctx, model.MatchEvent{
			ID:        uuid.NewString(),
			UserA:     entry.UserA,
			UserB:     entry.UserB,
			Kind:      entry.Kind,
			CreatedAt: entry.CreatedAt,
		})
		replayed++
	}
	return replayed, nil
}

func (j *Job) emit(ctx context.Context, event model.MatchEvent) {
	if j.notifier == nil {
		return
	}
	if err := j.notifier.Notify(ctx, event); err != nil {
		j.logger.Warn("replayed match event delivery failed",
			zap.String("match_key", event.DedupKey()),
			zap.Error(err),
		)
	}
}

// repairAsymmetric scans every profile for match edges the counterpart does
// not mirror, pairs listed under both kinds, and matched pairs with leftover
// transient interest. Repair re-applies the promotion toward the
// further-along kind.
func (j *Job) repairAsymmetric(ctx context.Context) (int, error) {
	iter, err := j.store.GetAllProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan profiles: %w", err)
	}
	defer iter.Close()

	repaired := 0
	seen := map[string]bool{}
	for {
		profile, ok, err := iter.Next(ctx)
		if err != nil {
			return repaired, fmt.Errorf("scan profiles: %w", err)
		}
		if !ok {
			break
		}

		for _, counterpartID := range append(profile.LikeMatches, profile.SuperLikeMatches...) {
			pair := edge.NewPair(profile.ID, counterpartID)
			if seen[pair.Key()] {
				continue
			}
			seen[pair.Key()] = true

			counterpart, err := j.store.GetProfile(ctx, counterpartID)
			if err != nil {
				// A match edge pointing at a deleted profile has nothing to
				// repair toward.
				continue
			}

			kind, needsRepair := diagnosePair(profile, counterpart)
			if !needsRepair {
				continue
			}

			ops := interestsvc.PromotionOps(pair.Low, pair.High, kind)
			if kind == enums.MatchKindSuperLike {
				ops = append(ops,
					store.RemoveFromSet(pair.Low, store.FieldLikeMatches, pair.High),
					store.RemoveFromSet(pair.High, store.FieldLikeMatches, pair.Low),
				)
			}
			if _, err := j.store.BatchWrite(ctx, ops); err != nil {
				j.logger.Warn("repair match pair failed",
					zap.String("pair", pair.Key()),
					zap.Error(err),
				)
				continue
			}
			repaired++
		}
	}
	return repaired, nil
}

// diagnosePair decides whether a matched pair needs repair and toward which
// kind. Superlike wins whenever either side recorded it.
func diagnosePair(a, b model.UserProfile) (enums.MatchKind, bool) {
	kind := enums.MatchKindLike
	if a.InSuperLikeMatches(b.ID) || b.InSuperLikeMatches(a.ID) {
		kind = enums.MatchKindSuperLike
	}

	matchedA := a.InLikeMatches(b.ID) || a.InSuperLikeMatches(b.ID)
	matchedB := b.InLikeMatches(a.ID) || b.InSuperLikeMatches(a.ID)
	if matchedA != matchedB {
		return kind, true
	}

	if kind == enums.MatchKindSuperLike {
		if !a.InSuperLikeMatches(b.ID) || !b.InSuperLikeMatches(a.ID) {
			return kind, true
		}
		if a.InLikeMatches(b.ID) || b.InLikeMatches(a.ID) {
			return kind, true
		}
	}

	for _, leftover := range []bool{
		a.InLikers(b.ID), a.InSuperLikers(b.ID),
		a.InLikedUsers(b.ID), a.InSuperLikedUsers(b.ID),
		b.InLikers(a.ID), b.InSuperLikers(a.ID),
		b.InLikedUsers(a.ID), b.InSuperLikedUsers(a.ID),
	} {
		if leftover {
			return kind, true
		}
	}

	return kind, false
}
