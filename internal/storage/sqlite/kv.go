package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sandevgo/distill/internal/core"
)

// KVStore implements core.KeyValueStore on a sqlite table. Once closed it
// reports core.ErrStoreClosed from every method rather than surfacing
// driver errors from a torn-down handle.
type KVStore struct {
	db     *sql.DB
	closed atomic.Bool
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	if s.closed.Load() {
		return nil, core.ErrStoreClosed
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	placeholders := strings.Repeat("?,", len(keys)-1) + "?"
	query := fmt.Sprintf(`SELECT key, value FROM kv WHERE key IN (%s)`, placeholders)

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kv: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read kv rows: %w", err)
	}

	return values, nil
}

func (s *KVStore) Set(ctx context.Context, values map[string]string) error {
	if s.closed.Load() {
		return core.ErrStoreClosed
	}
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin kv tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			return fmt.Errorf("failed to upsert key %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *KVStore) Remove(ctx context.Context, keys []string) error {
	if s.closed.Load() {
		return core.ErrStoreClosed
	}
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(keys)-1) + "?"
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	query := fmt.Sprintf(`DELETE FROM kv WHERE key IN (%s)`, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Close tears down the backing handle. Subsequent calls are safe.
func (s *KVStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
