package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"jobsift/internal/db"
	"jobsift/internal/model"
)

// GetEmbedding returns the cached vector for a content hash, or nil when
// absent. Nothing reads this cache yet; it exists so a future semantic scorer
// finds warm state.
func (s *Store) GetEmbedding(ctx context.Context, contentHash string) (*model.EmbeddingCacheEntry, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return nil, err
	}
	var e model.EmbeddingCacheEntry
	var vec string
	var created int64
	err = sdb.QueryRowContext(ctx,
		`SELECT content_hash, vector, model_version, created_at FROM embedding_cache WHERE content_hash=?`,
		contentHash).Scan(&e.ContentHash, &vec, &e.ModelVersion, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vec), &e.Vector); err != nil {
		return nil, err
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	return &e, nil
}

func (s *Store) PutEmbedding(ctx context.Context, e model.EmbeddingCacheEntry) error {
	sdb, err := s.h.DB()
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	vec, err := json.Marshal(e.Vector)
	if err != nil {
		return err
	}
	_, err = sdb.ExecContext(ctx, `
		INSERT INTO embedding_cache(content_hash, vector, model_version, created_at) VALUES(?,?,?,?)
		ON CONFLICT(content_hash) DO UPDATE SET
			vector=excluded.vector,
			model_version=excluded.model_version
	`, e.ContentHash, string(vec), e.ModelVersion, e.CreatedAt.UnixMilli())
	return db.WrapErr(err)
}

// DeleteEmbeddingsOlderThan drops cache entries created before the absolute
// cutoff and returns how many were removed.
func (s *Store) DeleteEmbeddingsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return 0, err
	}
	res, err := sdb.ExecContext(ctx, `DELETE FROM embedding_cache WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, db.WrapErr(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountEmbeddings is used by housekeeping reports.
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return 0, err
	}
	var n int
	if err := sdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
