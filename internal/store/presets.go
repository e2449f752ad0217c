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

// GetPreset returns the preset by its user-chosen id, or nil when absent.
func (s *Store) GetPreset(ctx context.Context, id string) (*model.Preset, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return nil, err
	}
	row := sdb.QueryRowContext(ctx, `SELECT id, snapshot, created_at FROM presets WHERE id=?`, id)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPresets(ctx context.Context) ([]model.Preset, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return nil, err
	}
	rows, err := sdb.QueryContext(ctx, `SELECT id, snapshot, created_at FROM presets ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Preset, 0, 8)
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SavePreset upserts by id. The creation timestamp sticks on re-save.
func (s *Store) SavePreset(ctx context.Context, p model.Preset) error {
	sdb, err := s.h.DB()
	if err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	snap, err := json.Marshal(p.Snapshot)
	if err != nil {
		return err
	}
	_, err = sdb.ExecContext(ctx, `
		INSERT INTO presets(id, snapshot, created_at) VALUES(?,?,?)
		ON CONFLICT(id) DO UPDATE SET snapshot=excluded.snapshot
	`, p.ID, string(snap), p.CreatedAt.UnixMilli())
	return db.WrapErr(err)
}

func (s *Store) DeletePreset(ctx context.Context, id string) error {
	sdb, err := s.h.DB()
	if err != nil {
		return err
	}
	_, err = sdb.ExecContext(ctx, `DELETE FROM presets WHERE id=?`, id)
	return db.WrapErr(err)
}

func scanPreset(row rowScanner) (*model.Preset, error) {
	var p model.Preset
	var snap string
	var created int64
	if err := row.Scan(&p.ID, &snap, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(snap), &p.Snapshot); err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	return &p, nil
}
