package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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
	GetAllProfiles(ctx context.Context) (store.ProfileIterator, error)
	SetFields(ctx context.Context, docID string, fields map[string]any) error
}

type Config struct {
	DefaultAgeMin        int
	DefaultAgeMax        int
	DefaultMaxDistanceKM int
	// ResetWindow is how long previously liked profiles stay hidden from the
	// requester's feed. Once it elapses they resurface and the refresh
	// timestamp is rewritten.
	ResetWindow time.Duration
}

type Candidate struct {
	Profile    model.UserProfile
	Age        int
	DistanceKM float64
}

type Result struct {
	Candidates []Candidate
	// Refreshed reports that the reset window had elapsed and
	// lastDiscoverRefresh was moved to now.
	Refreshed bool
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
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = rules.DefaultResetWindow
	}

	return &Service{
		store: st,
		cfg:   cfg,
		now:   time.Now,
	}
}

// GetCandidates selects the requester's discoverable profiles. Candidate
// order is whatever the store scan yields.
func (s *Service) GetCandidates(ctx context.Context, requesterID string) (Result, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return Result{}, ErrValidation
	}
	if s.store == nil {
		return Result{}, fmt.Errorf("feed store is nil")
	}

	requester, err := s.store.GetProfile(ctx, requesterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, ErrNotFound
		}
		return Result{}, fmt.Errorf("load requester %s: %w", requesterID, err)
	}

	now := s.now().UTC()
	windowElapsed := rules.ResetWindowElapsed(requester.LastDiscoverRefresh, now, s.cfg.ResetWindow)
	if windowElapsed {
		err := s.store.SetFields(ctx, requesterID, map[string]any{
			store.FieldLastDiscoverRefresh: now,
		})
		if err != nil {
			return Result{}, fmt.Errorf("record discover refresh: %w", err)
		}
	}

	// Distance to every candidate is part of the contract, so a requester
	// without coordinates has nothing discoverable.
	if !requester.HasCoordinates() {
		return Result{Candidates: []Candidate{}, Refreshed: windowElapsed}, nil
	}

	ageMin, ageMax := rules.NormalizeAgeRange(
		requester.Prefs.AgeMin, requester.Prefs.AgeMax,
		s.cfg.DefaultAgeMin, s.cfg.DefaultAgeMax,
	)
	maxDistanceKM := rules.NormalizeRadius(requester.Prefs.MaxDistanceKM, s.cfg.DefaultMaxDistanceKM)

	iter, err := s.store.GetAllProfiles(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scan profiles: %w", err)
	}
	defer iter.Close()

	candidates := []Candidate{}
	for {
		profile, ok, err := iter.Next(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("scan profiles: %w", err)
		}
		if !ok {
			break
		}

		if profile.ID == requester.ID {
			continue
		}
		if requester.InLikeMatches(profile.ID) || requester.InSuperLikeMatches(profile.ID) {
			continue
		}
		if !windowElapsed && (requester.InLikedUsers(profile.ID) || requester.InSuperLikedUsers(profile.ID)) {
			continue
		}
		if requester.IsBlockedPair(profile.ID) {
			continue
		}
		if !profile.HasCoordinates() {
			continue
		}

		distanceKM := rules.HaversineKM(*requester.Lat, *requester.Lon, *profile.Lat, *profile.Lon)
		if !rules.WithinDistance(distanceKM, maxDistanceKM) {
			continue
		}

		if profile.Birthdate == nil {
			continue
		}
		age := rules.AgeAt(*profile.Birthdate, now)
		if !rules.WithinAgeRange(age, ageMin, ageMax) {
			continue
		}

		if !rules.WantsGender(requester.Prefs.LookingFor, profile.Gender) {
			continue
		}

		candidates = append(candidates, Candidate{
			Profile:    profile,
			Age:        age,
			DistanceKM: distanceKM,
		})
	}

	return Result{Candidates: candidates, Refreshed: windowElapsed}, nil
}
