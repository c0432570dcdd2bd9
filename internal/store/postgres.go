package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgx shared by the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		db:   pool,
	}
}

// InTx begins a transaction on the pool, or joins the current one when s is already transactional.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate creates the tables and indexes used by the store. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		avatar TEXT,
		hashed_password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id UUID NOT NULL,
		receiver_id UUID NOT NULL,
		kind VARCHAR(16) NOT NULL,
		payload JSONB,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ,
		recalled_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (conversation_id, receiver_id) WHERE is_read = FALSE`,
	`CREATE TABLE IF NOT EXISTS message_hidden (
		message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		user_id UUID NOT NULL,
		hidden_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (message_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_hidden_user ON message_hidden (user_id)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		blocker_id UUID NOT NULL,
		blocked_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (blocker_id, blocked_id)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_groups (
		id TEXT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		avatar TEXT,
		owner_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_group_members (
		group_id TEXT NOT NULL REFERENCES chat_groups(id) ON DELETE CASCADE,
		user_id UUID NOT NULL,
		last_read_at TIMESTAMPTZ NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_group_members_user ON chat_group_members (user_id)`,
}
