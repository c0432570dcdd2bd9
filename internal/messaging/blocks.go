package messaging

import (
	"context"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Block stops blockedID from sending new 1:1 messages to blockerID. Existing messages and
// conversations stay as they are. Blocking twice is harmless.
func (s *Service) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if err := validateBlockPair(blockerID, blockedID); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetUserByID(ctx, blockedID); err != nil {
			return err
		}
		return tx.Block(ctx, blockerID, blockedID, s.clock())
	})
	if err != nil {
		return classify(err)
	}
	s.logger.Info("user blocked", zap.String("userId", blockerID.String()), zap.String("targetId", blockedID.String()))
	return nil
}

// Unblock removes the relation if present.
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if err := validateBlockPair(blockerID, blockedID); err != nil {
		return err
	}
	if err := s.store.Unblock(ctx, blockerID, blockedID); err != nil {
		return classify(err)
	}
	return nil
}

// IsBlocked reports whether userID has blocked targetID.
func (s *Service) IsBlocked(ctx context.Context, userID, targetID uuid.UUID) (bool, error) {
	blocked, err := s.store.IsBlocked(ctx, userID, targetID)
	if err != nil {
		return false, classify(err)
	}
	return blocked, nil
}

// ListBlocked returns the users userID has blocked, newest first.
func (s *Service) ListBlocked(ctx context.Context, userID uuid.UUID) ([]models.BlockRelation, error) {
	relations, err := s.store.ListBlocked(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return relations, nil
}

func validateBlockPair(blockerID, blockedID uuid.UUID) error {
	if blockedID == uuid.Nil {
		return failf(ErrValidation, "targetId is required")
	}
	if blockerID == blockedID {
		return failf(ErrValidation, "cannot block yourself")
	}
	return nil
}
