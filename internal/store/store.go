// Package store is the typed query and mutation layer over the versioned
// SQLite store. All multi-record mutations run inside a single transaction;
// empty batches resolve without opening one.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"jobsift/internal/db"
	"jobsift/internal/model"
)

type Store struct {
	h *db.Handle
}

func New(h *db.Handle) *Store {
	return &Store{h: h}
}

const listingColumns = `id, source_url, normalized_url, title, description, company, location,
	fit_score, explanations, decision, annotation, discovered_at, updated_at`

// Get returns the listing by id, or nil when absent. Absence is a valid
// result, not an error.
func (s *Store) Get(ctx context.Context, id string) (*model.Listing, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return nil, err
	}
	row := sdb.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id=?`, id)
	rec, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachLabels(ctx, sdb, []*model.Listing{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save upserts one listing by primary key, overwriting all fields except
// discovered_at, which is immutable once set. updated_at is stamped on every
// write.
func (s *Store) Save(ctx context.Context, rec model.Listing) error {
	return s.SaveMany(ctx, []model.Listing{rec})
}

// SaveMany upserts the batch in one transaction; either all rows land or none
// do. Labels are replaced wholesale inside the same transaction.
func (s *Store) SaveMany(ctx context.Context, recs []model.Listing) error {
	if len(recs) == 0 {
		return nil
	}
	sdb, err := s.h.DB()
	if err != nil {
		return err
	}
	tx, err := sdb.BeginTx(ctx, nil)
	if err != nil {
		return db.WrapErr(err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO listings(`+listingColumns+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			source_url=excluded.source_url,
			normalized_url=excluded.normalized_url,
			title=excluded.title,
			description=excluded.description,
			company=excluded.company,
			location=excluded.location,
			fit_score=excluded.fit_score,
			explanations=excluded.explanations,
			decision=excluded.decision,
			annotation=excluded.annotation,
			updated_at=excluded.updated_at
	`)
	if err != nil {
		return db.WrapErr(err)
	}
	defer upsert.Close()

	now := time.Now().UTC()
	for _, rec := range recs {
		if rec.Decision == "" {
			rec.Decision = model.DecisionUnset
		}
		if rec.DiscoveredAt.IsZero() {
			rec.DiscoveredAt = now
		}
		rec.UpdatedAt = now
		expl, err := json.Marshal(emptyToSlice(rec.Explanations))
		if err != nil {
			return err
		}
		var score sql.NullFloat64
		if rec.FitScore != nil {
			score = sql.NullFloat64{Float64: *rec.FitScore, Valid: true}
		}
		if _, err := upsert.ExecContext(ctx,
			rec.ID, rec.SourceURL, rec.NormalizedURL, rec.Title, rec.Description,
			rec.Company, rec.Location, score, string(expl), string(rec.Decision),
			rec.Annotation, rec.DiscoveredAt.UnixMilli(), rec.UpdatedAt.UnixMilli(),
		); err != nil {
			return db.WrapErr(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM listing_labels WHERE listing_id=?`, rec.ID); err != nil {
			return db.WrapErr(err)
		}
		for _, label := range rec.Labels {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO listing_labels(listing_id, label) VALUES(?,?)`, rec.ID, label,
			); err != nil {
				return db.WrapErr(err)
			}
		}
	}
	return db.WrapErr(tx.Commit())
}

// GetAll returns every listing. Order is whatever the primary index yields;
// callers must not rely on it.
func (s *Store) GetAll(ctx context.Context) ([]model.Listing, error) {
	return s.queryListings(ctx, `SELECT `+listingColumns+` FROM listings`)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.DeleteMany(ctx, []string{id})
}

// DeleteMany removes the given ids in one transaction. Missing ids are
// ignored.
func (s *Store) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	sdb, err := s.h.DB()
	if err != nil {
		return err
	}
	tx, err := sdb.BeginTx(ctx, nil)
	if err != nil {
		return db.WrapErr(err)
	}
	defer tx.Rollback()
	q, args := inClause(ids)
	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_labels WHERE listing_id IN (`+q+`)`, args...); err != nil {
		return db.WrapErr(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE id IN (`+q+`)`, args...); err != nil {
		return db.WrapErr(err)
	}
	return db.WrapErr(tx.Commit())
}

// Clear deletes the whole listings collection.
func (s *Store) Clear(ctx context.Context) error {
	sdb, err := s.h.DB()
	if err != nil {
		return err
	}
	tx, err := sdb.BeginTx(ctx, nil)
	if err != nil {
		return db.WrapErr(err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_labels`); err != nil {
		return db.WrapErr(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return db.WrapErr(err)
	}
	return db.WrapErr(tx.Commit())
}

func (s *Store) ByDecision(ctx context.Context, d model.Decision) ([]model.Listing, error) {
	return s.queryListings(ctx, `SELECT `+listingColumns+` FROM listings WHERE decision=?`, string(d))
}

// ByScoreRange returns listings with a fit score inside the closed interval
// [min, max]. Unscored listings never match. Callers needing exclusive bounds
// adjust the inputs themselves.
func (s *Store) ByScoreRange(ctx context.Context, min, max float64) ([]model.Listing, error) {
	return s.queryListings(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE fit_score IS NOT NULL AND fit_score >= ? AND fit_score <= ?
	`, min, max)
}

// ByLabel returns listings carrying the label, via the multi-valued label
// index.
func (s *Store) ByLabel(ctx context.Context, label string) ([]model.Listing, error) {
	return s.queryListings(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE id IN (SELECT listing_id FROM listing_labels WHERE label=?)
	`, label)
}

// ByDiscoveryRange returns listings discovered inside [start, end], inclusive.
func (s *Store) ByDiscoveryRange(ctx context.Context, start, end time.Time) ([]model.Listing, error) {
	return s.queryListings(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE discovered_at >= ? AND discovered_at <= ?
	`, start.UnixMilli(), end.UnixMilli())
}

// RecentWithOffset sorts the full collection by discovery time descending and
// slices [offset, offset+limit). The full fetch keeps pagination simple and is
// acceptable only while eviction keeps the collection small; there is no
// cursor seek here.
func (s *Store) RecentWithOffset(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].DiscoveredAt.Equal(all[j].DiscoveredAt) {
			return all[i].DiscoveredAt.After(all[j].DiscoveredAt)
		}
		return all[i].ID < all[j].ID
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) || limit <= 0 {
		return []model.Listing{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// ExistsBySourceURL reports whether a listing with the normalized URL is
// already stored. Point lookup on the unique URL index.
func (s *Store) ExistsBySourceURL(ctx context.Context, normalizedURL string) (bool, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return false, err
	}
	var one int
	err = sdb.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE normalized_url=?`, normalizedURL).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBySourceURLs batch-looks-up listings by normalized URL. Misses are
// silently omitted; callers diff against the input to learn which were absent.
func (s *Store) GetBySourceURLs(ctx context.Context, urls []string) ([]model.Listing, error) {
	if len(urls) == 0 {
		return []model.Listing{}, nil
	}
	q, args := inClause(urls)
	return s.queryListings(ctx, `SELECT `+listingColumns+` FROM listings WHERE normalized_url IN (`+q+`)`, args...)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.countWhere(ctx, ``)
}

func (s *Store) CountByDecision(ctx context.Context, d model.Decision) (int, error) {
	return s.countWhere(ctx, `WHERE decision=?`, string(d))
}

func (s *Store) CountByScoreRange(ctx context.Context, min, max float64) (int, error) {
	return s.countWhere(ctx, `WHERE fit_score IS NOT NULL AND fit_score >= ? AND fit_score <= ?`, min, max)
}

func (s *Store) countWhere(ctx context.Context, where string, args ...any) (int, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return 0, err
	}
	var n int
	if err := sdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) queryListings(ctx context.Context, query string, args ...any) ([]model.Listing, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return nil, err
	}
	rows, err := sdb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Listing, 0, 32)
	for rows.Next() {
		rec, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Take element pointers only after the scan loop: append may reallocate
	// the backing array, which would strand pointers captured mid-growth.
	refs := make([]*model.Listing, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := s.attachLabels(ctx, sdb, refs); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) attachLabels(ctx context.Context, sdb *sql.DB, recs []*model.Listing) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(recs))
	byID := make(map[string]*model.Listing, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
		byID[rec.ID] = rec
	}
	q, args := inClause(ids)
	rows, err := sdb.QueryContext(ctx,
		`SELECT listing_id, label FROM listing_labels WHERE listing_id IN (`+q+`) ORDER BY label`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return err
		}
		if rec, ok := byID[id]; ok {
			rec.Labels = append(rec.Labels, label)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*model.Listing, error) {
	var rec model.Listing
	var score sql.NullFloat64
	var expl string
	var decision string
	var discovered, updated int64
	if err := row.Scan(&rec.ID, &rec.SourceURL, &rec.NormalizedURL, &rec.Title, &rec.Description,
		&rec.Company, &rec.Location, &score, &expl, &decision, &rec.Annotation,
		&discovered, &updated); err != nil {
		return nil, err
	}
	if score.Valid {
		v := score.Float64
		rec.FitScore = &v
	}
	if expl != "" {
		if err := json.Unmarshal([]byte(expl), &rec.Explanations); err != nil {
			return nil, err
		}
	}
	rec.Decision = model.Decision(decision)
	rec.DiscoveredAt = time.UnixMilli(discovered).UTC()
	rec.UpdatedAt = time.UnixMilli(updated).UTC()
	return &rec, nil
}

func emptyToSlice(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func inClause[T any](vals []T) (string, []any) {
	parts := make([]string, len(vals))
	args := make([]any, len(vals))
	for i, v := range vals {
		parts[i] = "?"
		args[i] = v
	}
	return strings.Join(parts, ","), args
}
