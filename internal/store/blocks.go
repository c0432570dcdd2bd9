package store

import (
	"context"
	"fmt"
	"time"

	"pawpost-backend/internal/models"

	"github.com/google/uuid"
)

// Block records the relation. Blocking twice keeps the original timestamp.
func (s *PostgresStore) Block(ctx context.Context, blockerID, blockedID uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO blocks (blocker_id, blocked_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`, blockerID, blockedID, at)
	if err != nil {
		return fmt.Errorf("failed to block user %s: %w", blockedID, err)
	}
	return nil
}

func (s *PostgresStore) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to unblock user %s: %w", blockedID, err)
	}
	return nil
}

func (s *PostgresStore) IsBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	var blocked bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2)
	`, blockerID, blockedID).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("failed to check block relation: %w", err)
	}
	return blocked, nil
}

func (s *PostgresStore) ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]models.BlockRelation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT blocker_id, blocked_id, created_at
		FROM blocks
		WHERE blocker_id = $1
		ORDER BY created_at DESC, blocked_id
	`, blockerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	defer rows.Close()

	relations := make([]models.BlockRelation, 0)
	for rows.Next() {
		var rel models.BlockRelation
		if err := rows.Scan(&rel.BlockerID, &rel.BlockedID, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan block relation: %w", err)
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating block relations: %w", err)
	}
	return relations, nil
}
