package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
	redisrepo "github.com/osavenko/matcha/backend/internal/repo/redis"
	"github.com/osavenko/matcha/backend/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

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

type notifierStub struct {
	events []model.MatchEvent
}

func (n *notifierStub) Notify(_ context.Context, event model.MatchEvent) error {
	n.events = append(n.events, event)
	return nil
}

func newTestJob(t *testing.T) (*Job, *redisrepo.RelationshipRepo, *redisrepo.JournalRepo, *notifierStub, func()) {
	t.Helper()

	mr, client := newMiniRedisClient(t)
	repo := redisrepo.NewRelationshipRepo(client)
	journal := redisrepo.NewJournalRepo(client)
	notifier := &notifierStub{}

	job := New(repo, journal, notifier, time.Minute, nil)
	job.now = func() time.Time { return testNow }

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return job, repo, journal, notifier, cleanup
}

func saveProfile(t *testing.T, repo *redisrepo.RelationshipRepo, profile model.UserProfile) {
	t.Helper()
	if err := repo.SaveProfile(context.Background(), profile); err != nil {
		t.Fatalf("save profile %s: %v", profile.ID, err)
	}
}

func mustGet(t *testing.T, repo *redisrepo.RelationshipRepo, id string) model.UserProfile {
	t.Helper()
	profile, err := repo.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("get profile %s: %v", id, err)
	}
	return profile
}

func TestReplayPendingPromotion(t *testing.T) {
	job, repo, journal, notifier, cleanup := newTestJob(t)
	defer cleanup()
	ctx := context.Background()

	// A promotion crashed before the projection writes: both sides still
	// carry the mutual transient interest and a journal entry is pending.
	saveProfile(t, repo, model.UserProfile{
		ID:         "alice",
		LikedUsers: []string{"bob"},
		Likers:     []string{"bob"},
	})
	saveProfile(t, repo, model.UserProfile{
		ID:         "bob",
		LikedUsers: []string{"alice"},
		Likers:     []string{"alice"},
	})
	err := journal.Append(ctx, store.JournalEntry{
		PairKey:   "alice|bob",
		UserA:     "alice",
		UserB:     "bob",
		Kind:      enums.MatchKindLike,
		CreatedAt: testNow.Add(-10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("append journal entry: %v", err)
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("run reconcile: %v", err)
	}
	if report.ReplayedPromotions != 1 {
		t.Fatalf("expected one replayed promotion, got %+v", report)
	}

	alice := mustGet(t, repo, "alice")
	bob := mustGet(t, repo, "bob")
	if !alice.InLikeMatches("bob") || !bob.InLikeMatches("alice") {
		t.Fatalf("replay must land the match on both sides")
	}
	if alice.InLikedUsers("bob") || alice.InLikers("bob") || bob.InLikedUsers("alice") || bob.InLikers("alice") {
		t.Fatalf("replay must clear the transient sets")
	}

	pending, err := journal.ListPending(ctx, testNow)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("replayed entry must be completed, still pending: %+v", pending)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("replay must emit the match event, got %d", len(notifier.events))
	}
	event := notifier.events[0]
	if event.UserA != "alice" || event.UserB != "bob" || event.Kind != enums.MatchKindLike {
		t.Fatalf("unexpected replayed event: %+v", event)
	}
}

func TestReplayNotifiesMatchThatNeverEmitted(t *testing.T) {
	job, repo, journal, notifier, cleanup := newTestJob(t)
	defer cleanup()
	ctx := context.Background()

	// The promotion writes landed on both records but the process died before
	// completing the journal entry, so no event ever went out.
	saveProfile(t, repo, model.UserProfile{ID: "alice", LikeMatches: []string{"bob"}})
	saveProfile(t, repo, model.UserProfile{ID: "bob", LikeMatches: []string{"alice"}})
	err := journal.Append(ctx, store.JournalEntry{
		PairKey:   "alice|bob",
		UserA:     "alice",
		UserB:     "bob",
		Kind:      enums.MatchKindLike,
		CreatedAt: testNow.Add(-10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("append journal entry: %v", err)
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("run reconcile: %v", err)
	}
	if report.ReplayedPromotions != 1 {
		t.Fatalf("expected one replayed promotion, got %+v", report)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("a replayed promotion must deliver its match event, got %d", len(notifier.events))
	}
	if notifier.events[0].CreatedAt != testNow.Add(-10*time.Minute) {
		t.Fatalf("replayed event must carry the original promotion time: %+v", notifier.events[0])
	}
}

func TestFreshJournalEntryWaitsForGrace(t *testing.T) {
	job, repo, journal, notifier, cleanup := newTestJob(t)
	defer cleanup()
	ctx := context.Background()

	saveProfile(t, repo, model.UserProfile{ID: "alice", Likers: []string{"bob"}})
	saveProfile(t, repo, model.UserProfile{ID: "bob", LikedUsers: []string{"alice"}})
	err := journal.Append(ctx, store.JournalEntry{
		PairKey:   "alice|bob",
		UserA:     "alice",
		UserB:     "bob",
		Kind:      enums.MatchKindLike,
		CreatedAt: testNow.Add(-10 * time.Second),
	})
	if err != nil {
		t.Fatalf("append journal entry: %v", err)
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("run reconcile: %v", err)
	}
	if report.ReplayedPromotions != 0 {
		t.Fatalf("an in-flight promotion inside the grace period must be left alone: %+v", report)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("nothing replayed, nothing to emit: %+v", notifier.events)
	}
}

func TestRepairAsymmetricMatch(t *testing.T) {
	job, repo, _, _, cleanup := newTestJob(t)
	defer cleanup()

	// Only alice's side of the promotion landed.
	saveProfile(t, repo, model.UserProfile{ID: "alice", LikeMatches: []string{"bob"}})
	saveProfile(t, repo, model.UserProfile{ID: "bob", LikedUsers: []string{"alice"}})

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run reconcile: %v", err)
	}
	if report.RepairedPairs != 1 {
		t.Fatalf("expected one repaired pair, got %+v", report)
	}

	bob := mustGet(t, repo, "bob")
	if !bob.InLikeMatches("alice") {
		t.Fatalf("repair must complete bob's side of the match")
	}
	if bob.InLikedUsers("alice") {
		t.Fatalf("repair must clear leftover transient interest")
	}
}

func TestRepairCollapsesDualKindToSuperlike(t *testing.T) {
	job, repo, _, _, cleanup := newTestJob(t)
	defer cleanup()

	saveProfile(t, repo, model.UserProfile{
		ID:               "alice",
		LikeMatches:      []string{"bob"},
		SuperLikeMatches: []string{"bob"},
	})
	saveProfile(t, repo, model.UserProfile{
		ID:          "bob",
		LikeMatches: []string{"alice"},
	})

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run reconcile: %v", err)
	}
	if report.RepairedPairs != 1 {
		t.Fatalf("expected one repaired pair, got %+v", report)
	}

	alice := mustGet(t, repo, "alice")
	bob := mustGet(t, repo, "bob")
	if !alice.InSuperLikeMatches("bob") || !bob.InSuperLikeMatches("alice") {
		t.Fatalf("repair must settle on the superlike match")
	}
	if alice.InLikeMatches("bob") || bob.InLikeMatches("alice") {
		t.Fatalf("repair must collapse the duplicate like match")
	}
}

func TestHealthyStateIsLeftAlone(t *testing.T) {
	job, repo, _, _, cleanup := newTestJob(t)
	defer cleanup()

	saveProfile(t, repo, model.UserProfile{ID: "alice", LikeMatches: []string{"bob"}})
	saveProfile(t, repo, model.UserProfile{ID: "bob", LikeMatches: []string{"alice"}})
	saveProfile(t, repo, model.UserProfile{ID: "carol", LikedUsers: []string{"alice"}})

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run reconcile: %v", err)
	}
	if report.ReplayedPromotions != 0 || report.RepairedPairs != 0 {
		t.Fatalf("nothing to reconcile, got %+v", report)
	}
}
