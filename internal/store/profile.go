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

// profileKey is the fixed sentinel for the singleton profile row.
const profileKey = "user-profile"

// GetProfile returns the stored profile, or nil when the user has not saved
// one yet.
func (s *Store) GetProfile(ctx context.Context) (*model.Profile, error) {
	sdb, err := s.h.DB()
	if err != nil {
		return nil, err
	}
	var data string
	var updated int64
	err = sdb.QueryRowContext(ctx, `SELECT data, updated_at FROM profile WHERE key=?`, profileKey).
		Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p model.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return &p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p model.Profile) error {
	sdb, err := s.h.DB()
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = sdb.ExecContext(ctx, `
		INSERT INTO profile(key, data, updated_at) VALUES(?,?,?)
		ON CONFLICT(key) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at
	`, profileKey, string(data), p.UpdatedAt.UnixMilli())
	return db.WrapErr(err)
}
