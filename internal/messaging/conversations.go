package messaging

import (
	"context"

	"pawpost-backend/internal/conversation"
	"pawpost-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const platformName = "System"

// GetConversations lists userID's conversations, most recently active first.
func (s *Service) GetConversations(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	return s.resolve(ctx, s.index.ForUser(userID))
}

// GetConversation returns userID's view of a single conversation.
func (s *Service) GetConversation(ctx context.Context, userID uuid.UUID, conversationID string) (*models.Conversation, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	entry, ok := s.index.Get(conversationID, userID)
	if !ok {
		return nil, failf(ErrNotFound, "conversation %s not found", conversationID)
	}
	convs, err := s.resolve(ctx, []conversation.Entry{entry})
	if err != nil {
		return nil, err
	}
	return convs[0], nil
}

// GetMessages returns one page of the conversation as viewerID sees it, oldest first. Offset
// counts back from the newest message.
func (s *Service) GetMessages(ctx context.Context, viewerID uuid.UUID, conversationID string, limit, offset int) (*models.MessagePage, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, failf(ErrValidation, "offset must not be negative")
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if err := checkParticipant(ctx, s.store, conversationID, viewerID); err != nil {
		return nil, classify(err)
	}

	messages, total, err := s.store.GetMessagesByConversation(ctx, conversationID, viewerID, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	return &models.MessagePage{
		Messages: messages,
		HasMore:  offset+len(messages) < total,
		Total:    total,
	}, nil
}

// Statistics summarises userID's inbox from the conversation index.
func (s *Service) Statistics(ctx context.Context, userID uuid.UUID) (*models.Statistics, error) {
	entries := s.index.ForUser(userID)
	stats := &models.Statistics{TotalConversations: len(entries)}

	recent := make([]conversation.Entry, 0, recentUnreadLimit)
	for _, entry := range entries {
		stats.TotalUnread += entry.UnreadCount
		if entry.UnreadCount > 0 && len(recent) < recentUnreadLimit {
			recent = append(recent, entry)
		}
	}
	convs, err := s.resolve(ctx, recent)
	if err != nil {
		return nil, err
	}
	stats.RecentUnreadConversations = convs
	return stats, nil
}

// resolve decorates index entries with participant names, avatars and presence.
func (s *Service) resolve(ctx context.Context, entries []conversation.Entry) ([]*models.Conversation, error) {
	var ids []uuid.UUID
	for _, entry := range entries {
		ids = append(ids, entry.ParticipantIDs...)
	}
	ids = dedupe(ids)

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, classify(err)
	}

	var online map[uuid.UUID]bool
	if s.presence != nil && len(ids) > 0 {
		online, err = s.presence.Online(ctx, ids)
		if err != nil {
			// Presence is decoration; the list is still correct without it.
			s.logger.Warn("presence lookup failed", zap.Error(err))
			online = nil
		}
	}

	convs := make([]*models.Conversation, 0, len(entries))
	for _, entry := range entries {
		conv := &models.Conversation{
			ID:           entry.ConversationID,
			Participants: make([]models.Participant, 0, len(entry.ParticipantIDs)),
			LastMessage:  entry.LastMessage.Clone(),
			UnreadCount:  entry.UnreadCount,
			UpdatedAt:    entry.UpdatedAt,
			IsGroup:      entry.IsGroup(),
		}
		if entry.Group != nil {
			name := entry.Group.Name
			conv.GroupName = &name
			conv.GroupAvatar = entry.Group.Avatar
		}
		for _, id := range entry.ParticipantIDs {
			p := models.Participant{ID: id, Name: platformName}
			if user, ok := users[id]; ok {
				p = user.ToParticipant()
			} else if id != models.PlatformUserID {
				p.Name = "Unknown user"
			}
			if online != nil && id != models.PlatformUserID {
				isOnline := online[id]
				p.IsOnline = &isOnline
			}
			conv.Participants = append(conv.Participants, p)
		}
		convs = append(convs, conv)
	}
	return convs, nil
}
