package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/osavenko/matcha/backend/internal/domain/model"
	redisrepo "github.com/osavenko/matcha/backend/internal/repo/redis"
	interestsvc "github.com/osavenko/matcha/backend/internal/services/interest"
	notifysvc "github.com/osavenko/matcha/backend/internal/services/notify"
)

func newSwipeFixture(t *testing.T) (*SwipeHandler, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	repo := redisrepo.NewRelationshipRepo(client)
	journal := redisrepo.NewJournalRepo(client)

	ctx := context.Background()
	for _, id := range []string{"alice", "bob"} {
		if err := repo.SaveProfile(ctx, model.UserProfile{ID: id}); err != nil {
			t.Fatalf("save profile %s: %v", id, err)
		}
	}

	svc := interestsvc.NewService(interestsvc.Dependencies{
		Store:    repo,
		Journal:  journal,
		Notifier: notifysvc.NewLogSink(nil),
	}, interestsvc.Config{})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return NewSwipeHandler(svc), cleanup
}

func performSwipe(t *testing.T, h *SwipeHandler, userID, targetID, action string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"target_id": targetID,
		"action":    action,
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/swipes", bytes.NewReader(body))
	req = req.WithContext(WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestSwipeHandlerRecordsAndMatches(t *testing.T) {
	h, cleanup := newSwipeFixture(t)
	defer cleanup()

	resp := performSwipe(t, h, "alice", "bob", "LIKE")
	if resp.Code != http.StatusOK {
		t.Fatalf("first like status: %d body %s", resp.Code, resp.Body.String())
	}
	var first struct {
		Outcome   string `json:"outcome"`
		MatchKind string `json:"match_kind"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if first.Outcome != "recorded" || first.MatchKind != "" {
		t.Fatalf("unexpected first swipe response: %+v", first)
	}

	resp = performSwipe(t, h, "bob", "alice", "LIKE")
	var second struct {
		Outcome   string `json:"outcome"`
		MatchKind string `json:"match_kind"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if second.Outcome != "matched" || second.MatchKind != "like" {
		t.Fatalf("unexpected reciprocal swipe response: %+v", second)
	}
}

func TestSwipeHandlerStatusMapping(t *testing.T) {
	h, cleanup := newSwipeFixture(t)
	defer cleanup()

	cases := []struct {
		name     string
		userID   string
		targetID string
		action   string
		status   int
		code     string
	}{
		{"unsupported action", "alice", "bob", "POKE", http.StatusBadRequest, "UNSUPPORTED_ACTION"},
		{"self swipe", "alice", "alice", "LIKE", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing target", "alice", "ghost", "LIKE", http.StatusNotFound, "TARGET_NOT_FOUND"},
	}
	for _, tc := range cases {
		resp := performSwipe(t, h, tc.userID, tc.targetID, tc.action)
		if resp.Code != tc.status {
			t.Fatalf("%s: status %d want %d", tc.name, resp.Code, tc.status)
		}
		var payload struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s: decode response: %v", tc.name, err)
		}
		if payload.Code != tc.code {
			t.Fatalf("%s: code %q want %q", tc.name, payload.Code, tc.code)
		}
	}
}

func TestSwipeHandlerRejectsInvalidBody(t *testing.T) {
	h, cleanup := newSwipeFixture(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/v1/swipes", bytes.NewReader([]byte("{not json")))
	req = req.WithContext(WithUserID(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid body status: %d", rec.Code)
	}
}

func TestRequireUserID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	})
	mw := RequireUserID(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set(UserIDHeader, "alice")
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	if seen != "alice" {
		t.Fatalf("user id not propagated, got %q", seen)
	}
}
