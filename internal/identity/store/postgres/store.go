// Package postgres allocates persistent id blocks from a sequence table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"causeway/pkg/platform/sentinel"
	platformstrings "causeway/pkg/platform/strings"
	"causeway/pkg/platform/tx"
)

// Schema creates the sequence table. Migrations may create it instead.
const Schema = `
	CREATE TABLE IF NOT EXISTS id_sequences (
		name       TEXT PRIMARY KEY,
		last_value BIGINT NOT NULL DEFAULT 0
	)
`

// Store reserves id blocks with a single upsert per reservation; the row
// lock taken by the update serialises concurrent reservers. Calls join the
// transaction carried by the context, if any.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the sequence table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create id_sequences: %w", err)
	}
	return nil
}

// Reserve returns the first id of a block of n consecutive ids.
func (s *Store) Reserve(ctx context.Context, sequence string, n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve %s: batch size must be positive, got %d", sequence, n)
	}
	query := `
		INSERT INTO id_sequences (name, last_value)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			last_value = id_sequences.last_value + EXCLUDED.last_value
		RETURNING last_value
	`
	var last int64
	if err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, sequence, n).Scan(&last); err != nil {
		return 0, fmt.Errorf("reserve %s: %w: %w", sequence, sentinel.ErrUnavailable, err)
	}
	return last - n + 1, nil
}

// Current returns the last id reserved for sequence, 0 if none.
func (s *Store) Current(ctx context.Context, sequence string) (int64, error) {
	var last int64
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, `SELECT last_value FROM id_sequences WHERE name = $1`, sequence).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", sequence, err)
	}
	return last, nil
}

// Seed raises each sequence's counter to floor, so the next reservation
// starts above it. Counters already at or above floor are not lowered.
func (s *Store) Seed(ctx context.Context, floor int64, sequences ...string) error {
	sequences = platformstrings.DedupeAndTrim(sequences)
	if len(sequences) == 0 {
		return nil
	}
	query := `
		INSERT INTO id_sequences (name, last_value)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (name) DO UPDATE SET
			last_value = GREATEST(id_sequences.last_value, EXCLUDED.last_value)
	`
	if _, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query, pq.Array(sequences), floor); err != nil {
		return fmt.Errorf("seed sequences: %w", err)
	}
	return nil
}
