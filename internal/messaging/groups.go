package messaging

import (
	"context"
	"strings"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateGroup opens a group conversation owned by creatorID. The creator is always a member and
// a group needs at least one other member.
func (s *Service) CreateGroup(ctx context.Context, creatorID uuid.UUID, req models.CreateGroupRequest) (*models.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, failf(ErrValidation, "group name is required")
	}
	members := dedupe(append([]uuid.UUID{creatorID}, req.MemberIDs...))
	for _, id := range members {
		if id == uuid.Nil {
			return nil, failf(ErrValidation, "member ids must be user ids")
		}
	}
	if len(members) < 2 {
		return nil, failf(ErrValidation, "a group needs at least two members")
	}

	group := &models.Group{
		ID:        models.NewGroupConversationID(),
		Name:      name,
		Avatar:    req.Avatar,
		OwnerID:   creatorID,
		MemberIDs: members,
		CreatedAt: s.clock(),
	}
	err := s.mutate(ctx, []string{group.ID}, func(tx store.Store) error {
		users, err := tx.GetUsersByIDs(ctx, members)
		if err != nil {
			return err
		}
		for _, id := range members {
			if _, ok := users[id]; !ok {
				return failf(ErrNotFound, "user %s not found", id)
			}
		}
		return tx.CreateGroup(ctx, group)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("group created",
		zap.String("conversationId", group.ID),
		zap.String("userId", creatorID.String()),
		zap.Int("members", len(members)))
	return group, nil
}
