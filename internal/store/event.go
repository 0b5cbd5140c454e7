package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter hands out the global sequence number shared by every
// event table, so events of different types can be ordered against each
// other. The counter lives in its own single-row table; the increment and
// read happen in one UPDATE ... RETURNING so the database keeps it atomic.
// Callers inside a transaction pass the transaction so the counter moves
// with the rows it numbers.
type sequenceCounter struct{}

// newSequenceCounter ensures the tracking table exists.
func newSequenceCounter(ctx context.Context, q dialect.ExecQuerier) (*sequenceCounter, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS global_sequence (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			next_val INTEGER NOT NULL DEFAULT 1
		)`,
		`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`,
	}
	for _, stmt := range stmts {
		if err := q.Exec(ctx, stmt, []any{}, nil); err != nil {
			return nil, fmt.Errorf("prepare sequence table: %w", err)
		}
	}
	return &sequenceCounter{}, nil
}

// Next returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context, q dialect.ExecQuerier) (int64, error) {
	rows := &entsql.Rows{}
	err := q.Query(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
		[]any{}, rows,
	)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var seq int64
	if err := rows.Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// sqlite builds statements for the SQLite dialect.
var sqlite = entsql.Dialect(dialect.SQLite)

// applyOpts narrows selector to the sequence and time window in opts.
func applyOpts(selector *entsql.Selector, opts QueryOpts) *entsql.Selector {
	if opts.After > 0 {
		selector.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		selector.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		selector.Where(entsql.GTE("timestamp", opts.From))
	}
	if !opts.To.IsZero() {
		selector.Where(entsql.LTE("timestamp", opts.To))
	}
	if opts.Limit > 0 {
		selector.Limit(opts.Limit)
	}
	return selector
}
