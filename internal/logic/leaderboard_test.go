package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quizhub/ranking-api/internal/models"
)

func newTestLeaderboard(store *fakeStore, identity *fakeIdentity) LeaderboardService {
	return NewLeaderboardService(store, identity, zap.NewNop())
}

func seedThree(store *fakeStore) {
	base := time.Now().Add(-time.Hour)
	store.seed(
		models.RankEntry{UserID: "u1", TotalScore: 1000, Rank: 1, UpdatedAt: base},
		models.RankEntry{UserID: "u2", TotalScore: 800, Rank: 2, UpdatedAt: base.Add(time.Minute)},
		models.RankEntry{UserID: "u3", TotalScore: 600, Rank: 3, UpdatedAt: base.Add(2 * time.Minute)},
	)
}

func TestGetUserRanking(t *testing.T) {
	store := newFakeStore()
	seedThree(store)
	svc := newTestLeaderboard(store, newFakeIdentity("u1", "u2", "u3"))

	ranked, err := svc.GetUserRanking(context.Background(), "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranked.Rank != 2 || ranked.TotalScore != 800 {
		t.Errorf("got rank %d score %d, want 2/800", ranked.Rank, ranked.TotalScore)
	}
	if ranked.DisplayName != "name-u2" {
		t.Errorf("display name = %q, want %q", ranked.DisplayName, "name-u2")
	}
}

func TestGetUserRanking_UserNotFound(t *testing.T) {
	svc := newTestLeaderboard(newFakeStore(), newFakeIdentity("u1"))

	_, err := svc.GetUserRanking(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserRanking_RankingNotFound(t *testing.T) {
	// Identity exists but the user was never scored.
	svc := newTestLeaderboard(newFakeStore(), newFakeIdentity("u1"))

	_, err := svc.GetUserRanking(context.Background(), "u1")
	if !errors.Is(err, ErrRankingNotFound) {
		t.Fatalf("expected ErrRankingNotFound, got %v", err)
	}
}

func TestGetAllRankings_OrderAndEnrichment(t *testing.T) {
	store := newFakeStore()
	seedThree(store)
	svc := newTestLeaderboard(store, newFakeIdentity("u1", "u2", "u3"))

	rankings, err := svc.GetAllRankings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rankings) != 3 {
		t.Fatalf("got %d entries, want 3", len(rankings))
	}

	wantOrder := []string{"u1", "u2", "u3"}
	for i, id := range wantOrder {
		if rankings[i].UserID != id {
			t.Errorf("position %d = %s, want %s", i, rankings[i].UserID, id)
		}
		if rankings[i].Rank != i+1 {
			t.Errorf("position %d rank = %d, want %d", i, rankings[i].Rank, i+1)
		}
		if rankings[i].DisplayName == "" {
			t.Errorf("position %d missing display name", i)
		}
	}
}

func TestGetAllRankings_MissingIdentityTolerated(t *testing.T) {
	store := newFakeStore()
	seedThree(store)
	identity := newFakeIdentity("u1", "u2", "u3")
	identity.missing["u2"] = true
	svc := newTestLeaderboard(store, identity)

	rankings, err := svc.GetAllRankings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rankings) != 3 {
		t.Fatalf("got %d entries, want 3 (entry must not be dropped)", len(rankings))
	}
	for _, r := range rankings {
		if r.UserID == "u2" {
			if r.DisplayName != "" || r.Email != "" {
				t.Errorf("u2 identity fields should be empty, got %q/%q", r.DisplayName, r.Email)
			}
			if r.TotalScore != 800 {
				t.Errorf("u2 score = %d, want 800", r.TotalScore)
			}
		}
	}
}

func TestGetAllRankings_LookupErrorsTolerated(t *testing.T) {
	store := newFakeStore()
	seedThree(store)
	identity := newFakeIdentity("u1", "u2", "u3")
	identity.lookupErr = errors.New("identity service down")
	svc := newTestLeaderboard(store, identity)

	rankings, err := svc.GetAllRankings(context.Background())
	if err != nil {
		t.Fatalf("enrichment failure must not fail the query: %v", err)
	}
	if len(rankings) != 3 {
		t.Fatalf("got %d entries, want 3", len(rankings))
	}
}

func TestGetTopRankings_Bounds(t *testing.T) {
	store := newFakeStore()
	seedThree(store)
	svc := newTestLeaderboard(store, newFakeIdentity("u1", "u2", "u3"))

	tests := []struct {
		name      string
		limit     int
		wantCount int
	}{
		{"Zero", 0, 0},
		{"Negative", -5, 0},
		{"Within Range", 2, 2},
		{"Exact", 3, 3},
		{"Huge", 1 << 30, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rankings, err := svc.GetTopRankings(context.Background(), tt.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rankings == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(rankings) != tt.wantCount {
				t.Errorf("got %d entries, want %d", len(rankings), tt.wantCount)
			}
		})
	}
}

func TestGetTopRankings_ReturnsBestFirst(t *testing.T) {
	store := newFakeStore()
	seedThree(store)
	svc := newTestLeaderboard(store, newFakeIdentity("u1", "u2", "u3"))

	rankings, err := svc.GetTopRankings(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rankings) != 1 || rankings[0].UserID != "u1" {
		t.Fatalf("top 1 = %+v, want u1", rankings)
	}
}

func TestGetAllRankings_StorageError(t *testing.T) {
	store := newFakeStore()
	store.failOn = "load_all"
	svc := newTestLeaderboard(store, newFakeIdentity("u1"))

	if _, err := svc.GetAllRankings(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
