package likes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
	"github.com/osavenko/matcha/backend/internal/domain/rules"
	"github.com/osavenko/matcha/backend/internal/store"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

type Store interface {
	GetProfile(ctx context.Context, id string) (model.UserProfile, error)
}

type Config struct {
	DefaultAgeMin        int
	DefaultAgeMax        int
	DefaultMaxDistanceKM int
}

// IncomingProfile is someone who expressed interest in the requester. Kind is
// superlike whenever a super-like was recorded, even if a plain like also was.
type IncomingProfile struct {
	Profile    model.UserProfile
	Kind       enums.InterestKind
	Age        int
	DistanceKM *float64
}

type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func NewService(st Store, cfg Config) *Service {
	if cfg.DefaultAgeMin <= 0 {
		cfg.DefaultAgeMin = rules.DefaultAgeMin
	}
	if cfg.DefaultAgeMax <= 0 {
		cfg.DefaultAgeMax = rules.DefaultAgeMax
	}
	if cfg.DefaultMaxDistanceKM <= 0 {
		cfg.DefaultMaxDistanceKM = rules.DefaultMaxDistanceKM
	}

	return &Service{
		store: st,
		cfg:   cfg,
		now:   time.Now,
	}
}

// GetIncoming lists profiles that liked or super-liked the requester. Incoming
// interest is never hidden by the discovery reset window, but the requester's
// distance, age and coordinate filters still apply.
func (s *Service) GetIncoming(ctx context.Context, requesterID string) ([]IncomingProfile, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("likes store is nil")
	}

	requester, err := s.store.GetProfile(ctx, requesterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load requester %s: %w", requesterID, err)
	}

	now := s.now().UTC()
	ageMin, ageMax := rules.NormalizeAgeRange(
		requester.Prefs.AgeMin, requester.Prefs.AgeMax,
		s.cfg.DefaultAgeMin, s.cfg.DefaultAgeMax,
	)
	maxDistanceKM := rules.NormalizeRadius(requester.Prefs.MaxDistanceKM, s.cfg.DefaultMaxDistanceKM)

	kinds := map[string]enums.InterestKind{}
	for _, id := range requester.Likers {
		kinds[id] = enums.InterestKindLike
	}
	for _, id := range requester.SuperLikers {
		kinds[id] = enums.InterestKindSuperLike
	}

	incoming := []IncomingProfile{}
	for id, kind := range kinds {
		profile, err := s.store.GetProfile(ctx, id)
		if err != nil {
			// A liker deleted since the interest was recorded is skipped, not
			// an error.
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load liker %s: %w", id, err)
		}

		if !profile.HasCoordinates() {
			continue
		}
		var distanceKM *float64
		if requester.HasCoordinates() {
			d := rules.HaversineKM(*requester.Lat, *requester.Lon, *profile.Lat, *profile.Lon)
			if !rules.WithinDistance(d, maxDistanceKM) {
				continue
			}
			distanceKM = &d
		}

		if profile.Birthdate == nil {
			continue
		}
		age := rules.AgeAt(*profile.Birthdate, now)
		if !rules.WithinAgeRange(age, ageMin, ageMax) {
			continue
		}

		incoming = append(incoming, IncomingProfile{
			Profile:    profile,
			Kind:       kind,
			Age:        age,
			DistanceKM: distanceKM,
		})
	}

	return incoming, nil
}
