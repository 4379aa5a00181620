// Package store defines the narrow relationship-store port the engine is
// written against. The backing implementation guarantees atomicity only for a
// single set add/remove on a single document field; batched writes report
// per-operation results and are never atomic across documents.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
)

var (
	ErrNotFound    = errors.New("profile not found")
	ErrUnavailable = errors.New("store unavailable")
)

// Interest-set field names on the user document.
const (
	FieldLikedUsers       = "likedUsers"
	FieldSuperLikedUsers  = "superLikedUsers"
	FieldLikers           = "likers"
	FieldSuperLikers      = "superLikers"
	FieldLikeMatches      = "likeMatches"
	FieldSuperLikeMatches = "superLikeMatches"
	FieldBlockers         = "blockers"
	FieldBlocked          = "blocked"

	FieldLastDiscoverRefresh = "lastDiscoverRefresh"
)

type OpKind int

const (
	OpAddToSet OpKind = iota
	OpRemoveFromSet
	OpSetFields
)

type Operation struct {
	Kind   OpKind
	DocID  string
	Field  string
	Value  string
	Fields map[string]any
}

func AddToSet(docID, field, value string) Operation {
	return Operation{Kind: OpAddToSet, DocID: docID, Field: field, Value: value}
}

func RemoveFromSet(docID, field, value string) Operation {
	return Operation{Kind: OpRemoveFromSet, DocID: docID, Field: field, Value: value}
}

func SetFields(docID string, fields map[string]any) Operation {
	return Operation{Kind: OpSetFields, DocID: docID, Fields: fields}
}

type OpResult struct {
	Err error
}

type ProfileIterator interface {
	// Next returns the next profile, or ok=false once the scan is exhausted.
	Next(ctx context.Context) (model.UserProfile, bool, error)
	Close() error
}

type Relationships interface {
	GetProfile(ctx context.Context, id string) (model.UserProfile, error)
	GetAllProfiles(ctx context.Context) (ProfileIterator, error)
	AddToSet(ctx context.Context, docID, field, value string) error
	RemoveFromSet(ctx context.Context, docID, field, value string) error
	SetFields(ctx context.Context, docID string, fields map[string]any) error
	// BatchWrite applies operations in order and reports one result per
	// operation. A failed operation does not roll back earlier ones.
	BatchWrite(ctx context.Context, ops []Operation) ([]OpResult, error)
}

// JournalEntry is the write-ahead record of a match promotion. It is appended
// before the projection writes touch either user document and completed after
// both sides are updated, so a crash mid-promotion leaves a pending entry the
// reconciler can replay.
type JournalEntry struct {
	PairKey   string          `json:"pair_key"`
	UserA     string          `json:"user_a"`
	UserB     string          `json:"user_b"`
	Kind      enums.MatchKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

type Journal interface {
	Append(ctx context.Context, entry JournalEntry) error
	Complete(ctx context.Context, pairKey string) error
	ListPending(ctx context.Context, olderThan time.Time) ([]JournalEntry, error)
}
