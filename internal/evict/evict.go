// Package evict bounds the listings and embedding-cache collections. The
// three listing policies are independent and composable; each reads its
// candidate set through the query layer and removes it with one transactional
// batch delete. All of them are no-ops on an empty collection.
package evict

import (
	"context"
	"sort"
	"time"

	"jobsift/internal/model"
	"jobsift/internal/store"
)

type Policies struct {
	store *store.Store
}

func New(st *store.Store) *Policies {
	return &Policies{store: st}
}

// DeleteOlderThan removes every listing whose last update is older than
// now - days. Returns how many were deleted.
func (p *Policies) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return p.deleteWhere(ctx, func(l model.Listing) bool {
		return l.UpdatedAt.Before(cutoff)
	})
}

// DeleteDecided removes listings that both carry a decision and are staler
// than the cutoff. Undecided listings are the user's active queue and are
// never touched here, regardless of age.
func (p *Policies) DeleteDecided(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	return p.deleteWhere(ctx, func(l model.Listing) bool {
		return l.Decision != model.DecisionUnset && l.Decision != "" && l.UpdatedAt.Before(cutoff)
	})
}

// PruneByScore keeps only the keepTopN highest-scored listings and deletes
// the scored remainder. Unscored listings are neither protected by rank nor
// deleted. With keepTopN at or above the scored count this is a no-op.
func (p *Policies) PruneByScore(ctx context.Context, keepTopN int) (int, error) {
	if keepTopN < 0 {
		keepTopN = 0
	}
	all, err := p.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	scored := make([]model.Listing, 0, len(all))
	for _, l := range all {
		if l.FitScore != nil {
			scored = append(scored, l)
		}
	}
	if len(scored) <= keepTopN {
		return 0, nil
	}
	sort.Slice(scored, func(i, j int) bool {
		return *scored[i].FitScore > *scored[j].FitScore
	})
	ids := make([]string, 0, len(scored)-keepTopN)
	for _, l := range scored[keepTopN:] {
		ids = append(ids, l.ID)
	}
	if err := p.store.DeleteMany(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// EvictEmbeddingsOlderThan drops embedding-cache entries created before the
// absolute cutoff.
func (p *Policies) EvictEmbeddingsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return p.store.DeleteEmbeddingsOlderThan(ctx, cutoff)
}

func (p *Policies) deleteWhere(ctx context.Context, match func(model.Listing) bool) (int, error) {
	all, err := p.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, 16)
	for _, l := range all {
		if match(l) {
			ids = append(ids, l.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := p.store.DeleteMany(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
