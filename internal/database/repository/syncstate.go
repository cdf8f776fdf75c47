package repository

import (
	"context"
	"database/sql"
	"time"
)

// SyncStateRepo tracks the last successful sync per mailbox target.
type SyncStateRepo struct {
	db *sql.DB
}

func NewSyncStateRepo(db *sql.DB) *SyncStateRepo { return &SyncStateRepo{db: db} }

// Get returns the stored watermark, or the zero time when the target has
// never synced.
func (r *SyncStateRepo) Get(ctx context.Context, target string) (time.Time, error) {
	var unix int64
	err := r.db.QueryRowContext(ctx, `SELECT last_sync FROM sync_state WHERE target = ?`, target).Scan(&unix)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0).UTC(), nil
}

func (r *SyncStateRepo) Put(ctx context.Context, target string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sync_state(target, last_sync) VALUES (?, ?)
	ON CONFLICT(target) DO UPDATE SET last_sync=excluded.last_sync;
	`, target, ts.Unix())
	return err
}
