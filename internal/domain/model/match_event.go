package model

import (
	"time"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
)

type MatchEvent struct {
	ID        string          `json:"id"`
	UserA     string          `json:"user_a"`
	UserB     string          `json:"user_b"`
	Kind      enums.MatchKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

// DedupKey is stable across both members of the pair and across retries:
// UserA/UserB are kept in sorted order by the emitter.
func (e MatchEvent) DedupKey() string {
	return e.UserA + "|" + e.UserB + "|" + string(e.Kind)
}
