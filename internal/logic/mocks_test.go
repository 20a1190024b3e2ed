package logic

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/quizhub/ranking-api/internal/models"
)

// errBoom simulates storage failures.
var errBoom = errors.New("storage failure")

// fakeStore is an in-memory ScoreStore with snapshot-rollback transactions.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]models.RankEntry
	// failOn makes the named operation return errBoom.
	failOn string
	// op counters for assertions
	saveBatchCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]models.RankEntry)}
}

func (f *fakeStore) seed(entries ...models.RankEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.UserID] = e
	}
}

func (f *fakeStore) Get(ctx context.Context, userID string) (*models.RankEntry, error) {
	if f.failOn == "get" {
		return nil, errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[userID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (f *fakeStore) CountScoreGreaterThan(ctx context.Context, score int64, excludeUserID string) (int, error) {
	if f.failOn == "count_greater" {
		return 0, errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for id, e := range f.entries {
		if id != excludeUserID && e.TotalScore > score {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	if f.failOn == "count" {
		return 0, errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *fakeStore) Upsert(ctx context.Context, entry *models.RankEntry) error {
	if f.failOn == "upsert" {
		return errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.UserID] = *entry
	return nil
}

func (f *fakeStore) LoadAllOrderedByScoreDesc(ctx context.Context) ([]models.RankEntry, error) {
	if f.failOn == "load_all" {
		return nil, errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]models.RankEntry, 0, len(f.entries))
	for _, e := range f.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (f *fakeStore) SaveBatch(ctx context.Context, entries []models.RankEntry) error {
	if f.failOn == "save_batch" {
		return errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveBatchCalls++
	for _, e := range entries {
		stored := f.entries[e.UserID]
		stored.Rank = e.Rank
		f.entries[e.UserID] = stored
	}
	return nil
}

// WithTx snapshots the table and restores it when fn fails, mimicking
// rollback semantics.
func (f *fakeStore) WithTx(ctx context.Context, fn func(tx RankingStore) error) error {
	f.mu.Lock()
	snapshot := make(map[string]models.RankEntry, len(f.entries))
	for k, v := range f.entries {
		snapshot[k] = v
	}
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.entries = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

// ranks returns userID → rank for assertions.
func (f *fakeStore) ranks() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.entries))
	for id, e := range f.entries {
		out[id] = e.Rank
	}
	return out
}

// fakeIdentity resolves identities from a fixed map.
type fakeIdentity struct {
	users map[string]models.Identity
	// lookupErr makes Lookup fail for every user.
	lookupErr error
	// missing lists user IDs whose Lookup resolves to nil even though the
	// ranking entry exists (identity deleted after scoring).
	missing map[string]bool
}

func newFakeIdentity(ids ...string) *fakeIdentity {
	f := &fakeIdentity{users: make(map[string]models.Identity), missing: make(map[string]bool)}
	for _, id := range ids {
		f.users[id] = models.Identity{
			UserID:      id,
			DisplayName: "name-" + id,
			Email:       id + "@example.com",
		}
	}
	return f
}

func (f *fakeIdentity) Exists(ctx context.Context, userID string) (bool, error) {
	_, ok := f.users[userID]
	return ok, nil
}

func (f *fakeIdentity) Lookup(ctx context.Context, userID string) (*models.Identity, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.missing[userID] {
		return nil, nil
	}
	identity, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

// fakeAudit records enqueued events.
type fakeAudit struct {
	mu     sync.Mutex
	events []*models.ScoreEvent
	full   bool
}

func (f *fakeAudit) Enqueue(event *models.ScoreEvent) bool {
	if f.full {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return true
}
