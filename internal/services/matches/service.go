package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
	"github.com/osavenko/matcha/backend/internal/store"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

type Store interface {
	GetProfile(ctx context.Context, id string) (model.UserProfile, error)
}

type Service struct {
	store Store
}

type MatchItem struct {
	Profile model.UserProfile
	Kind    enums.MatchKind
}

func NewService(st Store) *Service {
	return &Service{store: st}
}

// List returns the requester's confirmed matches with their kind. A pair that
// somehow sits in both match sets reports superlike; the reconciler collapses
// that state.
func (s *Service) List(ctx context.Context, requesterID string) ([]MatchItem, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("match store is nil")
	}

	requester, err := s.store.GetProfile(ctx, requesterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load requester %s: %w", requesterID, err)
	}

	kinds := map[string]enums.MatchKind{}
	for _, id := range requester.LikeMatches {
		kinds[id] = enums.MatchKindLike
	}
	for _, id := range requester.SuperLikeMatches {
		kinds[id] = enums.MatchKindSuperLike
	}

	items := []MatchItem{}
	for id, kind := range kinds {
		profile, err := s.store.GetProfile(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load match %s: %w", id, err)
		}
		items = append(items, MatchItem{Profile: profile, Kind: kind})
	}

	return items, nil
}
