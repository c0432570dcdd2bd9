package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawpost-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// CreateGroup inserts the group and its members. Every member's read cursor starts at the group's creation.
func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO chat_groups (id, name, avatar, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, group.ID, group.Name, group.Avatar, group.OwnerID, group.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrGroupExists
		}
		return fmt.Errorf("failed to create group entry: %w", err)
	}

	batch := &pgx.Batch{}
	for _, userID := range group.MemberIDs {
		batch.Queue(`
			INSERT INTO chat_group_members (group_id, user_id, last_read_at, joined_at)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT DO NOTHING
		`, group.ID, userID, group.CreatedAt)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for _, userID := range group.MemberIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to add member %s to group %s: %w", userID, group.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRow(ctx, `
		SELECT id, name, avatar, owner_id, created_at FROM chat_groups WHERE id = $1
	`, groupID).Scan(&group.ID, &group.Name, &group.Avatar, &group.OwnerID, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group %s: %w", groupID, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM chat_group_members WHERE group_id = $1 ORDER BY joined_at, user_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members of group %s: %w", groupID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member of group %s: %w", groupID, err)
		}
		group.MemberIDs = append(group.MemberIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members of group %s: %w", groupID, err)
	}
	return group, nil
}

// DeleteGroup removes the group row; membership rows cascade.
func (s *PostgresStore) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM chat_groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group %s: %w", groupID, err)
	}
	if result.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// SetReadCursor stores a member's read cursor as given.
func (s *PostgresStore) SetReadCursor(ctx context.Context, groupID string, userID uuid.UUID, at time.Time) error {
	result, err := s.db.Exec(ctx, `
		UPDATE chat_group_members
		SET last_read_at = $3
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID, at)
	if err != nil {
		return fmt.Errorf("failed to set read cursor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotGroupMember
	}
	return nil
}

func (s *PostgresStore) GetReadCursor(ctx context.Context, groupID string, userID uuid.UUID) (time.Time, error) {
	var at time.Time
	err := s.db.QueryRow(ctx, `
		SELECT last_read_at FROM chat_group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNotGroupMember
		}
		return time.Time{}, fmt.Errorf("failed to get read cursor: %w", err)
	}
	return at, nil
}
