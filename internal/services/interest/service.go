package interest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/osavenko/matcha/backend/internal/domain/edge"
	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
	"github.com/osavenko/matcha/backend/internal/store"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrTargetNotFound    = errors.New("target profile not found")
	ErrUnsupportedIntent = errors.New("unsupported intent")
)

type Store interface {
	GetProfile(ctx context.Context, id string) (model.UserProfile, error)
	BatchWrite(ctx context.Context, ops []store.Operation) ([]store.OpResult, error)
}

type Journal interface {
	Append(ctx context.Context, entry store.JournalEntry) error
	Complete(ctx context.Context, pairKey string) error
}

type Notifier interface {
	Notify(ctx context.Context, event model.MatchEvent) error
}

type Outcome string

const (
	OutcomeNoChange Outcome = "no_change"
	OutcomeRecorded Outcome = "recorded"
	OutcomeMatched  Outcome = "matched"
)

type Result struct {
	Outcome Outcome
	// Kind is the match kind when Outcome is matched, or the kind of the
	// pre-existing match on the no-change short-circuit.
	Kind  enums.MatchKind
	Event *model.MatchEvent
}

type Config struct {
	RetryAttempts int
	RetryBackoff  time.Duration
}

type Dependencies struct {
	Store    Store
	Journal  Journal
	Notifier Notifier
	Logger   *zap.Logger
}

// Service is the interest state machine. Relationship state lives on two
// independently written user documents; every write here is a commutative set
// operation so a retried or racing Apply converges to the same terminal state.
type Service struct {
	store    Store
	journal  Journal
	notifier Notifier
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    deps.Store,
		journal:  deps.Journal,
		notifier: deps.Notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *Service) Apply(ctx context.Context, actorID, targetID, action string) (Result, error) {
	actorID = strings.TrimSpace(actorID)
	targetID = strings.TrimSpace(targetID)
	if actorID == "" || targetID == "" || actorID == targetID {
		return Result{}, ErrValidation
	}
	if s.store == nil || s.journal == nil {
		return Result{}, fmt.Errorf("interest dependencies are not configured")
	}

	intent, err := normalizeIntent(action)
	if err != nil {
		return Result{}, err
	}

	// Both snapshots are read once, up front; the reciprocity decision uses
	// the target state read here, never the state after our own writes.
	target, err := s.getProfile(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, ErrTargetNotFound
		}
		return Result{}, err
	}
	actor, err := s.getProfile(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, fmt.Errorf("actor profile missing: %w", ErrValidation)
		}
		return Result{}, err
	}

	state := edge.Derive(actor, target)
	decision := edge.Transition(state, intent)

	switch decision.Outcome {
	case edge.OutcomeNoChange:
		return Result{Outcome: OutcomeNoChange, Kind: decision.Kind}, nil
	case edge.OutcomeRecorded:
		if err := s.applyOps(ctx, recordOps(actorID, targetID, intent)); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeRecorded}, nil
	case edge.OutcomeMatched:
		return s.promote(ctx, actorID, targetID, intent, decision.Kind)
	default:
		return Result{}, fmt.Errorf("unexpected transition outcome %d", decision.Outcome)
	}
}

func (s *Service) promote(ctx context.Context, actorID, targetID string, intent enums.Intent, kind enums.MatchKind) (Result, error) {
	// The one-sided record still goes in first so a crash before the match
	// writes leaves the edge in a state a retry can promote from.
	if err := s.applyOps(ctx, recordOps(actorID, targetID, intent)); err != nil {
		return Result{}, err
	}

	pair := edge.NewPair(actorID, targetID)
	now := s.now().UTC()
	if err := s.journal.Append(ctx, store.JournalEntry{
		PairKey:   pair.Key(),
		UserA:     pair.Low,
		UserB:     pair.High,
		Kind:      kind,
		CreatedAt: now,
	}); err != nil {
		return Result{}, err
	}

	if err := s.applyOps(ctx, PromotionOps(pair.Low, pair.High, kind)); err != nil {
		return Result{}, err
	}

	// The match is durable once the projection writes land, so the event goes
	// out even when completing the journal entry fails: the entry stays
	// pending, the reconciler replays it, and the dedup key suppresses the
	// second emission.
	event := model.MatchEvent{
		ID:        uuid.NewString(),
		UserA:     pair.Low,
		UserB:     pair.High,
		Kind:      kind,
		CreatedAt: now,
	}
	s.emit(ctx, event)

	if err := s.journal.Complete(ctx, pair.Key()); err != nil {
		s.logger.Warn("complete promotion journal entry failed",
			zap.String("pair", pair.Key()),
			zap.Error(err),
		)
	}

	return Result{Outcome: OutcomeMatched, Kind: kind, Event: &event}, nil
}

func (s *Service) emit(ctx context.Context, event model.MatchEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("match event delivery failed",
			zap.String("match_key", event.DedupKey()),
			zap.Error(err),
		)
	}
}

func (s *Service) getProfile(ctx context.Context, id string) (model.UserProfile, error) {
	var profile model.UserProfile
	err := s.withRetry(ctx, func() error {
		var err error
		profile, err = s.store.GetProfile(ctx, id)
		return err
	})
	return profile, err
}

func (s *Service) applyOps(ctx context.Context, ops []store.Operation) error {
	return s.withRetry(ctx, func() error {
		results, err := s.store.BatchWrite(ctx, ops)
		if err != nil {
			return err
		}
		for i, result := range results {
			if result.Err != nil {
				return fmt.Errorf("batch op #%d: %w", i, result.Err)
			}
		}
		return nil
	})
}

// withRetry re-issues the call while the failure is a transient store error.
// Every write in this service is idempotent, so re-running a partially applied
// sequence is safe.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryBackoff):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, store.ErrUnavailable) {
			return lastErr
		}
	}
	return lastErr
}

// recordOps projects a one-sided intent onto both documents: the target's
// incoming sets first, then the actor's outgoing sets. Recording one kind
// always removes the opposite kind for the same pair, so a user id never sits
// in both the like and superlike variant of a set.
func recordOps(actorID, targetID string, intent enums.Intent) []store.Operation {
	switch intent {
	case enums.IntentLike:
		return []store.Operation{
			store.AddToSet(targetID, store.FieldLikers, actorID),
			store.RemoveFromSet(targetID, store.FieldSuperLikers, actorID),
			store.AddToSet(actorID, store.FieldLikedUsers, targetID),
			store.RemoveFromSet(actorID, store.FieldSuperLikedUsers, targetID),
		}
	case enums.IntentSuperLike:
		return []store.Operation{
			store.AddToSet(targetID, store.FieldSuperLikers, actorID),
			store.RemoveFromSet(targetID, store.FieldLikers, actorID),
			store.AddToSet(actorID, store.FieldSuperLikedUsers, targetID),
			store.RemoveFromSet(actorID, store.FieldLikedUsers, targetID),
		}
	case enums.IntentDislike:
		// One-directional "not interested": clears what the target expressed
		// toward the actor, leaves the actor's own outgoing interest alone.
		return []store.Operation{
			store.RemoveFromSet(actorID, store.FieldLikers, targetID),
			store.RemoveFromSet(actorID, store.FieldSuperLikers, targetID),
			store.RemoveFromSet(targetID, store.FieldLikedUsers, actorID),
			store.RemoveFromSet(targetID, store.FieldSuperLikedUsers, actorID),
		}
	default:
		return nil
	}
}

// PromotionOps writes the terminal match state for a pair: both match-set
// entries plus removal of the pair from every transient set on both records.
// The reconciler replays these same operations for stalled promotions.
func PromotionOps(lowID, highID string, kind enums.MatchKind) []store.Operation {
	matchField := store.FieldLikeMatches
	if kind == enums.MatchKindSuperLike {
		matchField = store.FieldSuperLikeMatches
	}

	ops := []store.Operation{
		store.AddToSet(lowID, matchField, highID),
		store.AddToSet(highID, matchField, lowID),
	}
	for _, field := range []string{
		store.FieldLikers,
		store.FieldSuperLikers,
		store.FieldLikedUsers,
		store.FieldSuperLikedUsers,
	} {
		ops = append(ops,
			store.RemoveFromSet(lowID, field, highID),
			store.RemoveFromSet(highID, field, lowID),
		)
	}
	return ops
}

func normalizeIntent(input string) (enums.Intent, error) {
	value := strings.ToUpper(strings.TrimSpace(input))
	value = strings.ReplaceAll(value, "_", "")
	switch value {
	case string(enums.IntentLike):
		return enums.IntentLike, nil
	case string(enums.IntentSuperLike):
		return enums.IntentSuperLike, nil
	case string(enums.IntentDislike):
		return enums.IntentDislike, nil
	default:
		return "", ErrUnsupportedIntent
	}
}
