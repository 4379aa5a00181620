package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/store"
)

const (
	journalPrefix     = "promo:"
	journalPendingKey = "promo:pending"
)

// JournalRepo persists the write-ahead promotion journal. Entries are keyed by
// the sorted pair key so a double promotion from a read race lands on the same
// record.
type JournalRepo struct {
	client *goredis.Client
}

func NewJournalRepo(client *goredis.Client) *JournalRepo {
	return &JournalRepo{client: client}
}

func journalKey(pairKey string) string {
	return journalPrefix + pairKey
}

func (r *JournalRepo) Append(ctx context.Context, entry store.JournalEntry) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if entry.PairKey == "" || entry.UserA == "" || entry.UserB == "" {
		return fmt.Errorf("invalid journal entry")
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, journalKey(entry.PairKey), map[string]any{
		"user_a":     entry.UserA,
		"user_b":     entry.UserB,
		"kind":       string(entry.Kind),
		"created_at": entry.CreatedAt.UTC().UnixMilli(),
	})
	pipe.SAdd(ctx, journalPendingKey, entry.PairKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("append promotion journal", err)
	}
	return nil
}

func (r *JournalRepo) Complete(ctx context.Context, pairKey string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	pipe := r.client.TxPipeline()
	pipe.SRem(ctx, journalPendingKey, pairKey)
	pipe.Del(ctx, journalKey(pairKey))
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("complete promotion journal", err)
	}
	return nil
}

func (r *JournalRepo) ListPending(ctx context.Context, olderThan time.Time) ([]store.JournalEntry, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	keys, err := r.client.SMembers(ctx, journalPendingKey).Result()
	if err != nil {
		return nil, unavailable("list pending promotions", err)
	}

	entries := make([]store.JournalEntry, 0, len(keys))
	for _, pairKey := range keys {
		values, err := r.client.HGetAll(ctx, journalKey(pairKey)).Result()
		if err != nil {
			return nil, unavailable("read promotion journal entry", err)
		}
		if len(values) == 0 {
			// Entry completed by a concurrent caller; drop the index leftover.
			_ = r.client.SRem(ctx, journalPendingKey, pairKey).Err()
			continue
		}

		entry := store.JournalEntry{
			PairKey: pairKey,
			UserA:   values["user_a"],
			UserB:   values["user_b"],
			Kind:    enums.MatchKind(values["kind"]),
		}
		if v := values["created_at"]; v != "" {
			ms, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse journal created_at for %s: %w", pairKey, err)
			}
			entry.CreatedAt = time.UnixMilli(ms).UTC()
		}

		if entry.CreatedAt.After(olderThan) {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
