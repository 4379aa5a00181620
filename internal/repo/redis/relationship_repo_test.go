package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
	"github.com/osavenko/matcha/backend/internal/store"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}

func floatPtr(v float64) *float64 { return &v }

func TestProfileRoundTrip(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRelationshipRepo(client)
	ctx := context.Background()

	birthdate := time.Date(2000, 5, 20, 0, 0, 0, 0, time.UTC)
	refresh := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	profile := model.UserProfile{
		ID:          "alice",
		DisplayName: "Alice",
		Gender:      "female",
		Birthdate:   &birthdate,
		Lat:         floatPtr(53.9),
		Lon:         floatPtr(27.56),
		ChatID:      911,
		Prefs: model.Preferences{
			LookingFor:    "male",
			AgeMin:        20,
			AgeMax:        35,
			MaxDistanceKM: 100,
		},
		LastDiscoverRefresh: &refresh,
		LikedUsers:          []string{"bob"},
		Likers:              []string{"carol"},
	}

	if err := repo.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	got, err := repo.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.DisplayName != "Alice" || got.Gender != "female" || got.ChatID != 911 {
		t.Fatalf("unexpected scalar fields: %+v", got)
	}
	if got.Birthdate == nil || !got.Birthdate.Equal(birthdate) {
		t.Fatalf("unexpected birthdate: %v", got.Birthdate)
	}
	if got.Lat == nil || *got.Lat != 53.9 || got.Lon == nil || *got.Lon != 27.56 {
		t.Fatalf("unexpected coordinates: %v %v", got.Lat, got.Lon)
	}
	if got.Prefs != profile.Prefs {
		t.Fatalf("unexpected prefs: %+v", got.Prefs)
	}
	if got.LastDiscoverRefresh == nil || !got.LastDiscoverRefresh.Equal(refresh) {
		t.Fatalf("unexpected refresh timestamp: %v", got.LastDiscoverRefresh)
	}
	if !got.InLikedUsers("bob") || !got.InLikers("carol") {
		t.Fatalf("interest sets not restored: %+v", got)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRelationshipRepo(client)
	if _, err := repo.GetProfile(context.Background(), "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestSetOpsAreIdempotent(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRelationshipRepo(client)
	ctx := context.Background()

	if err := repo.SaveProfile(ctx, model.UserProfile{ID: "alice"}); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.AddToSet(ctx, "alice", store.FieldLikedUsers, "bob"); err != nil {
			t.Fatalf("add to set #%d: %v", i+1, err)
		}
	}

	got, err := repo.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if len(got.LikedUsers) != 1 || got.LikedUsers[0] != "bob" {
		t.Fatalf("expected single liked user, got %v", got.LikedUsers)
	}

	for i := 0; i < 2; i++ {
		if err := repo.RemoveFromSet(ctx, "alice", store.FieldLikedUsers, "bob"); err != nil {
			t.Fatalf("remove from set #%d: %v", i+1, err)
		}
	}

	got, err = repo.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile after removal: %v", err)
	}
	if len(got.LikedUsers) != 0 {
		t.Fatalf("expected empty liked users, got %v", got.LikedUsers)
	}
}

func TestSetFieldsStoresRefreshTimestamp(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRelationshipRepo(client)
	ctx := context.Background()

	if err := repo.SaveProfile(ctx, model.UserProfile{ID: "alice"}); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := repo.SetFields(ctx, "alice", map[string]any{store.FieldLastDiscoverRefresh: at}); err != nil {
		t.Fatalf("set fields: %v", err)
	}

	got, err := repo.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.LastDiscoverRefresh == nil || !got.LastDiscoverRefresh.Equal(at) {
		t.Fatalf("unexpected refresh timestamp: %v", got.LastDiscoverRefresh)
	}
}

func TestBatchWriteAppliesAllOps(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRelationshipRepo(client)
	ctx := context.Background()

	for _, id := range []string{"alice", "bob"} {
		if err := repo.SaveProfile(ctx, model.UserProfile{ID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	results, err := repo.BatchWrite(ctx, []store.Operation{
		store.AddToSet("alice", store.FieldLikeMatches, "bob"),
		store.AddToSet("bob", store.FieldLikeMatches, "alice"),
		store.RemoveFromSet("alice", store.FieldLikedUsers, "bob"),
		store.RemoveFromSet("bob", store.FieldLikers, "alice"),
	})
	if err != nil {
		t.Fatalf("batch write: %v", err)
	}
	for i, result := range results {
		if result.Err != nil {
			t.Fatalf("op #%d failed: %v", i, result.Err)
		}
	}

	alice, err := repo.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get alice: %v", err)
	}
	bob, err := repo.GetProfile(ctx, "bob")
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}
	if !alice.InLikeMatches("bob") || !bob.InLikeMatches("alice") {
		t.Fatalf("match sets not written: %v %v", alice.LikeMatches, bob.LikeMatches)
	}
}

func TestProfileIteratorStreamsAllProfiles(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRelationshipRepo(client)
	ctx := context.Background()

	want := map[string]bool{"alice": false, "bob": false, "carol": false}
	for id := range want {
		if err := repo.SaveProfile(ctx, model.UserProfile{ID: id, DisplayName: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	it, err := repo.GetAllProfiles(ctx)
	if err != nil {
		t.Fatalf("get all profiles: %v", err)
	}
	defer func() { _ = it.Close() }()

	seen := 0
	for {
		profile, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("iterator next: %v", err)
		}
		if !ok {
			break
		}
		marked, known := want[profile.ID]
		if !known {
			t.Fatalf("unexpected profile %q in scan", profile.ID)
		}
		if marked {
			t.Fatalf("profile %q yielded twice", profile.ID)
		}
		want[profile.ID] = true
		seen++
	}
	if seen != len(want) {
		t.Fatalf("expected %d profiles, saw %d", len(want), seen)
	}
}

func TestJournalAppendListComplete(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewJournalRepo(client)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	entry := store.JournalEntry{
		PairKey:   "alice|bob",
		UserA:     "alice",
		UserB:     "bob",
		Kind:      enums.MatchKindSuperLike,
		CreatedAt: created,
	}
	if err := repo.Append(ctx, entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	pending, err := repo.ListPending(ctx, created.Add(time.Minute))
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending entry, got %d", len(pending))
	}
	got := pending[0]
	if got.PairKey != entry.PairKey || got.UserA != "alice" || got.UserB != "bob" || got.Kind != enums.MatchKindSuperLike {
		t.Fatalf("unexpected pending entry: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at: %v", got.CreatedAt)
	}

	// Entries younger than the cutoff stay invisible to the reconciler.
	pending, err = repo.ListPending(ctx, created.Add(-time.Minute))
	if err != nil {
		t.Fatalf("list pending before cutoff: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no entries before cutoff, got %d", len(pending))
	}

	if err := repo.Complete(ctx, entry.PairKey); err != nil {
		t.Fatalf("complete: %v", err)
	}
	pending, err = repo.ListPending(ctx, created.Add(time.Minute))
	if err != nil {
		t.Fatalf("list pending after complete: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty journal after complete, got %d", len(pending))
	}
}

func TestDedupAcquireOnlyOnce(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewDedupRepo(client, time.Hour)
	ctx := context.Background()

	acquired, err := repo.Acquire(ctx, "alice|bob|like")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !acquired {
		t.Fatalf("first acquire must succeed")
	}

	acquired, err = repo.Acquire(ctx, "alice|bob|like")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if acquired {
		t.Fatalf("second acquire of the same key must fail")
	}

	acquired, err = repo.Acquire(ctx, "alice|bob|superlike")
	if err != nil {
		t.Fatalf("different kind acquire: %v", err)
	}
	if !acquired {
		t.Fatalf("different kind is a different match key")
	}

	if err := repo.Release(ctx, "alice|bob|like"); err != nil {
		t.Fatalf("release: %v", err)
	}
	acquired, err = repo.Acquire(ctx, "alice|bob|like")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if !acquired {
		t.Fatalf("released key must be claimable again")
	}
}
