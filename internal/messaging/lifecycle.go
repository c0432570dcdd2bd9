package messaging

import (
	"context"
	"errors"
	"time"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MarkAsRead marks everything userID has received in the conversation as read and returns the
// resulting unread count. Calling it again changes nothing.
func (s *Service) MarkAsRead(ctx context.Context, userID uuid.UUID, conversationID string) (int, error) {
	if err := validateConversationID(conversationID); err != nil {
		return 0, err
	}
	err := s.mutate(ctx, []string{conversationID}, func(tx store.Store) error {
		if err := checkParticipant(ctx, tx, conversationID, userID); err != nil {
			return err
		}
		if models.IsGroupConversation(conversationID) {
			last, err := newest(ctx, tx, conversationID)
			if err != nil || last == nil {
				return err
			}
			current, err := tx.GetReadCursor(ctx, conversationID, userID)
			if err != nil {
				return err
			}
			if !last.CreatedAt.After(current) {
				return nil
			}
			return tx.SetReadCursor(ctx, conversationID, userID, last.CreatedAt)
		}
		_, err := tx.MarkConversationRead(ctx, conversationID, userID, s.clock())
		return err
	})
	if err != nil {
		return 0, err
	}
	entry, _ := s.index.Get(conversationID, userID)
	return entry.UnreadCount, nil
}

// MarkAsUnread flags the latest message userID received in the conversation as unread again.
// It is the only operation that lets read state move backwards; delivery status is untouched.
func (s *Service) MarkAsUnread(ctx context.Context, userID uuid.UUID, conversationID string) (int, error) {
	if err := validateConversationID(conversationID); err != nil {
		return 0, err
	}
	err := s.mutate(ctx, []string{conversationID}, func(tx store.Store) error {
		if err := checkParticipant(ctx, tx, conversationID, userID); err != nil {
			return err
		}
		latest, err := tx.GetLatestIncomingMessage(ctx, conversationID, userID)
		if errors.Is(err, store.ErrMessageNotFound) {
			return failf(ErrNotFound, "no received message in %s to mark unread", conversationID)
		}
		if err != nil {
			return err
		}
		if models.IsGroupConversation(conversationID) {
			cursor, err := tx.GetReadCursor(ctx, conversationID, userID)
			if err != nil {
				return err
			}
			if cursor.Before(latest.CreatedAt) {
				return nil
			}
			return tx.SetReadCursor(ctx, conversationID, userID, latest.CreatedAt.Add(-time.Microsecond))
		}
		if !latest.IsRead {
			return nil
		}
		latest.IsRead = false
		latest.Touch(s.clock())
		return tx.UpdateMessage(ctx, latest)
	})
	if err != nil {
		return 0, err
	}
	entry, _ := s.index.Get(conversationID, userID)
	return entry.UnreadCount, nil
}

// AcknowledgeStatus moves a message along the delivery pipeline. Receivers report delivered and
// read; the sender may report failed while the message is still only sent. Acknowledging a status
// the message already reached is a no-op.
func (s *Service) AcknowledgeStatus(ctx context.Context, userID, messageID uuid.UUID, status models.MessageStatus) (*models.Message, error) {
	switch status {
	case models.StatusDelivered, models.StatusRead, models.StatusFailed:
	default:
		return nil, failf(ErrValidation, "status %q cannot be acknowledged", status)
	}
	found, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, classify(err)
	}

	var result *models.Message
	err = s.mutate(ctx, []string{found.ConversationID}, func(tx store.Store) error {
		msg, err := tx.GetMessageByID(ctx, messageID)
		if err != nil {
			return err
		}
		if err := checkAcknowledger(ctx, tx, msg, userID, status); err != nil {
			return err
		}
		if msg.Status.Terminal() {
			return failf(ErrConflict, "message %s is %s", msg.ID, msg.Status)
		}
		if !msg.Status.Advances(status) {
			if status == models.StatusFailed {
				return failf(ErrConflict, "message %s was already %s", msg.ID, msg.Status)
			}
			result = msg
			return nil
		}
		msg.Status = status
		msg.Touch(s.clock())
		if err := tx.UpdateMessage(ctx, msg); err != nil {
			return err
		}
		result = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func checkAcknowledger(ctx context.Context, tx store.Store, msg *models.Message, userID uuid.UUID, status models.MessageStatus) error {
	if status == models.StatusFailed {
		if msg.SenderID != userID {
			return failf(ErrForbidden, "only the sender can mark a message as failed")
		}
		return nil
	}
	if msg.SenderID == userID {
		return failf(ErrForbidden, "the sender cannot acknowledge their own message")
	}
	if models.IsGroupConversation(msg.ConversationID) {
		return checkParticipant(ctx, tx, msg.ConversationID, userID)
	}
	if msg.ReceiverID != userID {
		return failf(ErrForbidden, "user %s is not the receiver of %s", userID, msg.ID)
	}
	return nil
}

// Recall tombstones a message on behalf of its sender. Recalling twice returns the same tombstone.
func (s *Service) Recall(ctx context.Context, userID, messageID uuid.UUID) (*models.Message, error) {
	found, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, classify(err)
	}

	var result *models.Message
	err = s.mutate(ctx, []string{found.ConversationID}, func(tx store.Store) error {
		msg, err := tx.GetMessageByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.SenderID != userID {
			return failf(ErrForbidden, "only the sender can recall message %s", msg.ID)
		}
		if msg.IsRecalled() {
			result = msg
			return nil
		}
		if msg.Status == models.StatusFailed {
			return failf(ErrConflict, "message %s failed and cannot be recalled", msg.ID)
		}
		now := s.clock()
		if window := s.opts.RecallWindow; window > 0 && now.Sub(msg.CreatedAt) > window {
			return failf(ErrForbidden, "message %s is older than the %s recall window", msg.ID, window)
		}
		msg.Recall(now)
		if err := tx.UpdateMessage(ctx, msg); err != nil {
			return err
		}
		result = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("message recalled",
		zap.String("messageId", messageID.String()),
		zap.String("conversationId", result.ConversationID),
		zap.String("userId", userID.String()))
	return result, nil
}

// DeleteMessage hides a message from userID's view only.
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID uuid.UUID) error {
	return s.DeleteMessages(ctx, userID, []uuid.UUID{messageID})
}

// DeleteMessages hides a set of messages from userID's view. Every id must exist in a conversation
// the user belongs to, otherwise nothing is hidden.
func (s *Service) DeleteMessages(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID) error {
	messageIDs = dedupe(messageIDs)
	if len(messageIDs) == 0 {
		return failf(ErrValidation, "at least one message id is required")
	}

	keys := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		msg, err := s.store.GetMessageByID(ctx, id)
		if err != nil {
			return classify(err)
		}
		keys = append(keys, msg.ConversationID)
	}

	return s.mutate(ctx, keys, func(tx store.Store) error {
		for _, id := range messageIDs {
			msg, err := tx.GetMessageByID(ctx, id)
			if err != nil {
				return err
			}
			if err := checkParticipant(ctx, tx, msg.ConversationID, userID); err != nil {
				return err
			}
		}
		return tx.HideMessages(ctx, userID, messageIDs, s.clock())
	})
}

// DeleteConversation clears a conversation from userID's view, or for everyone when deleteForAll
// is set.
func (s *Service) DeleteConversation(ctx context.Context, userID uuid.UUID, conversationID string, deleteForAll bool) error {
	return s.DeleteConversations(ctx, userID, []string{conversationID}, deleteForAll)
}

// DeleteConversations applies DeleteConversation to several conversations atomically.
func (s *Service) DeleteConversations(ctx context.Context, userID uuid.UUID, conversationIDs []string, deleteForAll bool) error {
	conversationIDs = dedupe(conversationIDs)
	if len(conversationIDs) == 0 {
		return failf(ErrValidation, "at least one conversation id is required")
	}
	for _, id := range conversationIDs {
		if err := validateConversationID(id); err != nil {
			return err
		}
	}

	err := s.mutate(ctx, conversationIDs, func(tx store.Store) error {
		now := s.clock()
		for _, id := range conversationIDs {
			if err := s.deleteConversation(ctx, tx, userID, id, deleteForAll, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if deleteForAll {
		s.logger.Info("conversations deleted for all participants",
			zap.String("userId", userID.String()),
			zap.Strings("conversationIds", conversationIDs))
	}
	return nil
}

func (s *Service) deleteConversation(ctx context.Context, tx store.Store, userID uuid.UUID, conversationID string, deleteForAll bool, now time.Time) error {
	if err := checkParticipant(ctx, tx, conversationID, userID); err != nil {
		return err
	}

	if models.IsGroupConversation(conversationID) {
		if !deleteForAll {
			return tx.HideConversation(ctx, conversationID, userID, now)
		}
		group, err := tx.GetGroup(ctx, conversationID)
		if err != nil {
			return err
		}
		if group.OwnerID != userID {
			return failf(ErrForbidden, "only the owner can delete group %s for everyone", conversationID)
		}
		if err := tx.DeleteConversationMessages(ctx, conversationID); err != nil {
			return err
		}
		return tx.DeleteGroup(ctx, conversationID)
	}

	last, err := newest(ctx, tx, conversationID)
	if err != nil {
		return err
	}
	if last == nil {
		return failf(ErrNotFound, "conversation %s not found", conversationID)
	}
	if deleteForAll {
		return tx.DeleteConversationMessages(ctx, conversationID)
	}
	return tx.HideConversation(ctx, conversationID, userID, now)
}
