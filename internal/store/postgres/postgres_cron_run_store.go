package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresCronRunStore struct {
	db *sql.DB
}

func NewPostgresCronRunStore(db *sql.DB) *PostgresCronRunStore {
	return &PostgresCronRunStore{db: db}
}

func (s *PostgresCronRunStore) LastEnqueuedAt(ctx context.Context, name string) (time.Time, bool, error) {
	var last time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT last_enqueued_at FROM domainsync.cron_runs WHERE name = $1
	`, name).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read cron run %s: %w", name, err)
	}
	return last, true, nil
}

func (s *PostgresCronRunStore) SetLastEnqueuedAt(ctx context.Context, name string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domainsync.cron_runs (name, last_enqueued_at)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET last_enqueued_at = EXCLUDED.last_enqueued_at
	`, name, at)
	if err != nil {
		return fmt.Errorf("failed to record cron run %s: %w", name, err)
	}
	return nil
}
