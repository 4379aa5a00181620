// Package notify delivers match events to interested parties. Promotion emits
// events at-least-once, so delivery goes through a dedup decorator keyed on
// the pair and match kind.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/osavenko/matcha/backend/internal/domain/model"
)

type Sink interface {
	Notify(ctx context.Context, event model.MatchEvent) error
}

// Acquirer claims a dedup key exactly once. A second claim for the same key
// reports false. Release gives the key back so a failed delivery can be
// retried by a later emission of the same event.
type Acquirer interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Deduper suppresses duplicate deliveries of the same match event.
type Deduper struct {
	sink     Sink
	acquirer Acquirer
	logger   *zap.Logger
}

func NewDeduper(sink Sink, acquirer Acquirer, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{sink: sink, acquirer: acquirer, logger: logger}
}

func (d *Deduper) Notify(ctx context.Context, event model.MatchEvent) error {
	claimed := false
	if d.acquirer != nil {
		acquired, err := d.acquirer.Acquire(ctx, event.DedupKey())
		if err != nil {
			// Dedup is best effort; a broken acquirer must not swallow the
			// event.
			d.logger.Warn("match event dedup unavailable, delivering anyway",
				zap.String("key", event.DedupKey()),
				zap.Error(err),
			)
		} else if !acquired {
			d.logger.Debug("match event already delivered",
				zap.String("key", event.DedupKey()),
			)
			return nil
		} else {
			claimed = true
		}
	}

	if d.sink == nil {
		return fmt.Errorf("notify sink is nil")
	}
	if err := d.sink.Notify(ctx, event); err != nil {
		// Give the key back so a replayed emission can deliver; a duplicate
		// beats a lost notification.
		if claimed {
			if relErr := d.acquirer.Release(ctx, event.DedupKey()); relErr != nil {
				d.logger.Warn("release match event dedup key failed",
					zap.String("key", event.DedupKey()),
					zap.Error(relErr),
				)
			}
		}
		return err
	}
	return nil
}

// LogSink records match events in the service log. It is the default sink
// when no external delivery channel is configured.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, event model.MatchEvent) error {
	s.logger.Info("match created",
		zap.String("event_id", event.ID),
		zap.String("user_a", event.UserA),
		zap.String("user_b", event.UserB),
		zap.String("kind", string(event.Kind)),
		zap.Time("created_at", event.CreatedAt),
	)
	return nil
}
