package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/jackc/pgx/v5/stdlib"

	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/logging"
)

// PostgresLedger stores handled comment ids in the replied_comments table.
type PostgresLedger struct {
	db  *sql.DB
	set idSet
	// dirty is set after a failed write; the next mark rewrites the full set.
	dirty  atomic.Bool
	logger logging.Logger
}

// OpenPostgresLedger connects through the pgx driver and makes sure the schema exists.
func OpenPostgresLedger(ctx context.Context, connStr string, logger logging.Logger) (*PostgresLedger, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	l := NewPostgresLedger(db, logger)
	if err := l.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func NewPostgresLedger(db *sql.DB, logger logging.Logger) *PostgresLedger {
	return &PostgresLedger{db: db, logger: logger}
}

var _ ports.Ledger = (*PostgresLedger)(nil)

func (l *PostgresLedger) InitSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS replied_comments (
		comment_id TEXT PRIMARY KEY,
		handled_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Load(ctx context.Context) error {
	rows, err := l.db.QueryContext(ctx, "SELECT comment_id FROM replied_comments ORDER BY handled_at, comment_id")
	if err != nil {
		return fmt.Errorf("load replied comments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan replied comment: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load replied comments: %w", err)
	}

	l.set.reset(ids)
	l.logger.WithField("count", len(ids)).Info("Loaded replied comments")
	return nil
}

func (l *PostgresLedger) Has(commentID string) bool { return l.set.has(commentID) }

func (l *PostgresLedger) MarkHandled(ctx context.Context, commentID string) error {
	if !l.set.add(commentID) {
		return nil
	}
	if l.dirty.Load() {
		return l.repair(ctx)
	}
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO replied_comments (comment_id) VALUES ($1) ON CONFLICT DO NOTHING", commentID)
	if err != nil {
		l.dirty.Store(true)
		return fmt.Errorf("persist replied comment: %w", err)
	}
	return nil
}

// Persist upserts every known id, repairing rows lost to earlier failed writes.
func (l *PostgresLedger) Persist(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persist: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range l.set.snapshot() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO replied_comments (comment_id) VALUES ($1) ON CONFLICT DO NOTHING", id); err != nil {
			return fmt.Errorf("persist replied comment %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (l *PostgresLedger) repair(ctx context.Context) error {
	if err := l.Persist(ctx); err != nil {
		return err
	}
	l.dirty.Store(false)
	l.logger.WithField("count", l.set.len()).Info("Ledger store repaired")
	return nil
}

func (l *PostgresLedger) Len() int { return l.set.len() }

func (l *PostgresLedger) Close() error { return l.db.Close() }
