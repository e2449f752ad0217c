package evict_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"jobsift/internal/db"
	"jobsift/internal/evict"
	"jobsift/internal/model"
	"jobsift/internal/store"
)

func setup(t *testing.T) (*evict.Policies, *store.Store, *db.Handle) {
	t.Helper()
	handle := db.NewHandle(filepath.Join(t.TempDir(), "jobsift.db"))
	if err := handle.Open(context.Background()); err != nil {
		t.Fatalf("open handle: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	st := store.New(handle)
	return evict.New(st), st, handle
}

func saveListing(t *testing.T, st *store.Store, id string, fitScore *float64, decision model.Decision) {
	t.Helper()
	err := st.Save(context.Background(), model.Listing{
		ID:            id,
		SourceURL:     "https://example.com/jobs/" + id,
		NormalizedURL: "https://example.com/jobs/" + id,
		Title:         id,
		Description:   "description",
		FitScore:      fitScore,
		Decision:      decision,
	})
	if err != nil {
		t.Fatalf("save %s: %v", id, err)
	}
}

// backdate rewrites updated_at directly; Save always stamps now, so age-based
// policies can only be exercised through SQL.
func backdate(t *testing.T, handle *db.Handle, id string, to time.Time) {
	t.Helper()
	sdb, err := handle.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if _, err := sdb.Exec(`UPDATE listings SET updated_at=? WHERE id=?`, to.UnixMilli(), id); err != nil {
		t.Fatalf("backdate %s: %v", id, err)
	}
}

func scoreOf(v float64) *float64 { return &v }

func TestDeleteOlderThan(t *testing.T) {
	policies, st, handle := setup(t)
	ctx := context.Background()
	saveListing(t, st, "stale", nil, model.DecisionUnset)
	saveListing(t, st, "fresh", nil, model.DecisionUnset)
	backdate(t, handle, "stale", time.Now().UTC().AddDate(0, 0, -120))

	n, err := policies.DeleteOlderThan(ctx, 90)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if rec, _ := st.Get(ctx, "stale"); rec != nil {
		t.Error("stale listing survived age eviction")
	}
	if rec, _ := st.Get(ctx, "fresh"); rec == nil {
		t.Error("fresh listing was evicted")
	}
}

func TestDeleteDecided_SparesUndecided(t *testing.T) {
	policies, st, handle := setup(t)
	ctx := context.Background()
	saveListing(t, st, "old-accepted", nil, model.DecisionAccepted)
	saveListing(t, st, "old-rejected", nil, model.DecisionRejected)
	saveListing(t, st, "old-undecided", nil, model.DecisionUnset)
	saveListing(t, st, "new-accepted", nil, model.DecisionAccepted)
	past := time.Now().UTC().AddDate(0, 0, -60)
	for _, id := range []string{"old-accepted", "old-rejected", "old-undecided"} {
		backdate(t, handle, id, past)
	}

	n, err := policies.DeleteDecided(ctx, 30)
	if err != nil {
		t.Fatalf("DeleteDecided: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	// Undecided stays no matter how old; fresh decisions stay too.
	for _, id := range []string{"old-undecided", "new-accepted"} {
		if rec, _ := st.Get(ctx, id); rec == nil {
			t.Errorf("%s was evicted", id)
		}
	}
}

func TestPruneByScore_KeepsTopN(t *testing.T) {
	policies, st, _ := setup(t)
	ctx := context.Background()
	for i, s := range []float64{9, 8, 7, 6} {
		saveListing(t, st, fmt.Sprintf("scored-%d", i), scoreOf(s), model.DecisionUnset)
	}
	saveListing(t, st, "unscored", nil, model.DecisionUnset)

	n, err := policies.PruneByScore(ctx, 2)
	if err != nil {
		t.Fatalf("PruneByScore: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	for id, want := range map[string]bool{
		"scored-0": true,  // 9
		"scored-1": true,  // 8
		"scored-2": false, // 7
		"scored-3": false, // 6
		"unscored": true,  // outside the ranking entirely
	} {
		rec, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if (rec != nil) != want {
			t.Errorf("%s present = %v, want %v", id, rec != nil, want)
		}
	}
}

func TestPruneByScore_NoOpWhenUnderLimit(t *testing.T) {
	policies, st, _ := setup(t)
	ctx := context.Background()
	saveListing(t, st, "a", scoreOf(5), model.DecisionUnset)
	saveListing(t, st, "b", scoreOf(4), model.DecisionUnset)

	n, err := policies.PruneByScore(ctx, 10)
	if err != nil {
		t.Fatalf("PruneByScore: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
	if total, _ := st.Count(ctx); total != 2 {
		t.Errorf("count = %d, want 2", total)
	}
}

func TestPoliciesOnEmptyStoreAreNoOps(t *testing.T) {
	policies, _, _ := setup(t)
	ctx := context.Background()
	if n, err := policies.DeleteOlderThan(ctx, 1); err != nil || n != 0 {
		t.Errorf("DeleteOlderThan on empty store = %d, %v", n, err)
	}
	if n, err := policies.DeleteDecided(ctx, 1); err != nil || n != 0 {
		t.Errorf("DeleteDecided on empty store = %d, %v", n, err)
	}
	if n, err := policies.PruneByScore(ctx, 0); err != nil || n != 0 {
		t.Errorf("PruneByScore on empty store = %d, %v", n, err)
	}
	if n, err := policies.EvictEmbeddingsOlderThan(ctx, time.Now()); err != nil || n != 0 {
		t.Errorf("EvictEmbeddingsOlderThan on empty store = %d, %v", n, err)
	}
}

func TestEvictEmbeddingsOlderThan(t *testing.T) {
	policies, st, _ := setup(t)
	ctx := context.Background()
	old := model.EmbeddingCacheEntry{
		ContentHash:  "hash-old",
		Vector:       []float64{1},
		ModelVersion: "v1",
		CreatedAt:    time.Now().UTC().AddDate(0, 0, -45),
	}
	fresh := model.EmbeddingCacheEntry{
		ContentHash:  "hash-fresh",
		Vector:       []float64{2},
		ModelVersion: "v1",
	}
	if err := st.PutEmbedding(ctx, old); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.PutEmbedding(ctx, fresh); err != nil {
		t.Fatalf("put: %v", err)
	}
	n, err := policies.EvictEmbeddingsOlderThan(ctx, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("EvictEmbeddingsOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("evicted = %d, want 1", n)
	}
	if remaining, _ := st.CountEmbeddings(ctx); remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}
