package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const dedupPrefix = "match:event:"

// DedupRepo claims match-event keys with SETNX. Two racing promotions of the
// same pair compute the same content-derived key, so only the first claim
// delivers a notification.
type DedupRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewDedupRepo(client *goredis.Client, ttl time.Duration) *DedupRepo {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &DedupRepo{client: client, ttl: ttl}
}

func (r *DedupRepo) Acquire(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return false, fmt.Errorf("dedup key is required")
	}

	acquired, err := r.client.SetNX(ctx, dedupPrefix+key, "1", r.ttl).Result()
	if err != nil {
		return false, unavailable("acquire match event key", err)
	}
	return acquired, nil
}

// Release frees a claimed key after a failed delivery.
func (r *DedupRepo) Release(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return fmt.Errorf("dedup key is required")
	}

	if err := r.client.Del(ctx, dedupPrefix+key).Err(); err != nil {
		return unavailable("release match event key", err)
	}
	return nil
}
