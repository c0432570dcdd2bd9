package messaging

import (
	"context"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// target is a resolved destination for a new message.
type target struct {
	conversationID string
	receiverID     uuid.UUID // nil for group conversations
	group          bool
}

// resolveTarget turns a send request's addressing into a conversation id. A 1:1 conversation is
// always keyed by the sorted participant pair, so concurrent first sends agree on its identity.
func resolveTarget(senderID uuid.UUID, t models.SendTarget) (target, error) {
	if t.ConversationID != nil && models.IsGroupConversation(*t.ConversationID) {
		if err := validateConversationID(*t.ConversationID); err != nil {
			return target{}, err
		}
		if t.ReceiverID != nil && *t.ReceiverID != uuid.Nil {
			return target{}, failf(ErrValidation, "receiverId must be omitted for group conversations")
		}
		return target{conversationID: *t.ConversationID, group: true}, nil
	}

	if t.ReceiverID == nil || *t.ReceiverID == uuid.Nil {
		return target{}, failf(ErrValidation, "receiverId is required")
	}
	receiverID := *t.ReceiverID
	if receiverID == senderID {
		return target{}, failf(ErrValidation, "cannot send a message to yourself")
	}
	canonical := models.DirectConversationID(senderID, receiverID)
	if t.ConversationID != nil && *t.ConversationID != "" && *t.ConversationID != canonical {
		if err := validateConversationID(*t.ConversationID); err != nil {
			return target{}, err
		}
		return target{}, failf(ErrConflict, "conversation %s does not belong to %s and %s", *t.ConversationID, senderID, receiverID)
	}
	return target{conversationID: canonical, receiverID: receiverID}, nil
}

// Send creates a message from an authenticated user. System payloads are reserved for SendSystem.
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, t models.SendTarget, payload models.Payload) (*models.Message, error) {
	if senderID == models.PlatformUserID {
		return nil, failf(ErrForbidden, "the platform account cannot send as a user")
	}
	if payload != nil && payload.Kind() == models.KindSystem {
		return nil, failf(ErrForbidden, "system messages are emitted by the platform only")
	}
	return s.send(ctx, senderID, t, payload)
}

// SendSystem emits a platform message. Without an explicit conversation it lands in the receiver's
// conversation with the platform account.
func (s *Service) SendSystem(ctx context.Context, t models.SendTarget, payload models.SystemPayload) (*models.Message, error) {
	return s.send(ctx, models.PlatformUserID, t, payload)
}

func (s *Service) send(ctx context.Context, senderID uuid.UUID, t models.SendTarget, payload models.Payload) (*models.Message, error) {
	if err := models.ValidatePayload(payload); err != nil {
		return nil, failf(ErrValidation, "%v", err)
	}
	dest, err := resolveTarget(senderID, t)
	if err != nil {
		return nil, err
	}

	var created *models.Message
	err = s.mutate(ctx, []string{dest.conversationID}, func(tx store.Store) error {
		msg, err := s.appendMessage(ctx, tx, senderID, dest, payload)
		if err != nil {
			return err
		}
		created = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("message sent",
		zap.String("messageId", created.ID.String()),
		zap.String("conversationId", created.ConversationID),
		zap.String("kind", string(created.Kind)))
	return created, nil
}

// appendMessage enforces the send preconditions and persists a new message in the sent state.
func (s *Service) appendMessage(ctx context.Context, tx store.Store, senderID uuid.UUID, dest target, payload models.Payload) (*models.Message, error) {
	if dest.group {
		group, err := tx.GetGroup(ctx, dest.conversationID)
		if err != nil {
			return nil, err
		}
		if !group.HasMember(senderID) {
			return nil, failf(ErrForbidden, "user %s is not a member of %s", senderID, dest.conversationID)
		}
	} else {
		if _, err := tx.GetUserByID(ctx, dest.receiverID); err != nil {
			return nil, err
		}
		if senderID != models.PlatformUserID {
			blocked, err := tx.IsBlocked(ctx, dest.receiverID, senderID)
			if err != nil {
				return nil, err
			}
			if blocked {
				return nil, failf(ErrBlocked, "user %s does not accept messages from %s", dest.receiverID, senderID)
			}
		}
	}

	createdAt, err := s.stamp(ctx, tx, dest.conversationID)
	if err != nil {
		return nil, err
	}
	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: dest.conversationID,
		SenderID:       senderID,
		ReceiverID:     dest.receiverID,
		Kind:           payload.Kind(),
		Payload:        payload,
		IsRead:         false,
		Status:         models.StatusSent,
		CreatedAt:      createdAt,
	}
	if err := tx.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Forward copies a message's payload into a new message to each receiver. The copies carry no
// reference to the source. Either every copy is created or none is.
func (s *Service) Forward(ctx context.Context, userID, messageID uuid.UUID, receiverIDs []uuid.UUID) ([]*models.Message, error) {
	receiverIDs = dedupe(receiverIDs)
	if len(receiverIDs) == 0 {
		return nil, failf(ErrValidation, "at least one receiver is required")
	}

	source, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, classify(err)
	}

	dests := make([]target, 0, len(receiverIDs))
	keys := []string{source.ConversationID}
	for _, receiverID := range receiverIDs {
		dest, err := resolveTarget(userID, models.SendTarget{ReceiverID: &receiverID})
		if err != nil {
			return nil, err
		}
		dests = append(dests, dest)
		keys = append(keys, dest.conversationID)
	}

	var forwarded []*models.Message
	err = s.mutate(ctx, keys, func(tx store.Store) error {
		forwarded = forwarded[:0]
		msg, err := tx.GetMessageByID(ctx, messageID)
		if err != nil {
			return err
		}
		if err := checkParticipant(ctx, tx, msg.ConversationID, userID); err != nil {
			return err
		}
		hidden, err := tx.IsMessageHidden(ctx, userID, msg.ID)
		if err != nil {
			return err
		}
		if hidden {
			return failf(ErrNotFound, "message %s not found", msg.ID)
		}
		if msg.IsRecalled() {
			return failf(ErrConflict, "message %s has been recalled", msg.ID)
		}
		if msg.Kind == models.KindSystem {
			return failf(ErrValidation, "system messages cannot be forwarded")
		}
		for _, dest := range dests {
			copied, err := s.appendMessage(ctx, tx, userID, dest, msg.Payload)
			if err != nil {
				return err
			}
			forwarded = append(forwarded, copied)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("message forwarded",
		zap.String("messageId", messageID.String()),
		zap.String("userId", userID.String()),
		zap.Int("receivers", len(forwarded)))
	return forwarded, nil
}
