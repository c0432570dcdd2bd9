package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pawpost-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `m.id, m.conversation_id, m.sender_id, m.receiver_id, m.kind, m.payload, m.is_read, m.status, m.created_at, m.updated_at, m.recalled_at`

// visibleTo filters out messages the user at the given placeholder has deleted for themselves.
func visibleTo(placeholder string) string {
	return `NOT EXISTS (SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = ` + placeholder + `)`
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	var payload []byte

	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Kind,
		&payload,
		&msg.IsRead,
		&msg.Status,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.RecalledAt,
	)
	if err != nil {
		return nil, err
	}
	msg.Payload, err = models.DecodePayload(msg.Kind, payload)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return &msg, nil
}

func collectMessages(rows pgx.Rows) ([]*models.Message, error) {
	defer rows.Close()
	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

func encodePayload(p models.Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (s *PostgresStore) CreateMessage(ctx context.Context, message *models.Message) error {
	payload, err := encodePayload(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, kind, payload, is_read, status, created_at, updated_at, recalled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		message.ID,
		message.ConversationID,
		message.SenderID,
		message.ReceiverID,
		message.Kind,
		payload,
		message.IsRead,
		message.Status,
		message.CreatedAt,
		message.UpdatedAt,
		message.RecalledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages m WHERE m.id = $1`
	msg, err := scanMessage(s.db.QueryRow(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", err)
	}
	return msg, nil
}

func (s *PostgresStore) UpdateMessage(ctx context.Context, message *models.Message) error {
	payload, err := encodePayload(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	result, err := s.db.Exec(ctx, `
		UPDATE messages
		SET payload = $2, is_read = $3, status = $4, updated_at = $5, recalled_at = $6
		WHERE id = $1
	`, message.ID, payload, message.IsRead, message.Status, message.UpdatedAt, message.RecalledAt)
	if err != nil {
		return fmt.Errorf("failed to update message %s: %w", message.ID, err)
	}
	if result.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *PostgresStore) GetMessagesByConversation(ctx context.Context, conversationID string, viewerID uuid.UUID, limit, offset int) ([]*models.Message, int, error) {
	var total int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages m
		WHERE m.conversation_id = $1 AND `+visibleTo("$2"),
		conversationID, viewerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.conversation_id = $1 AND `+visibleTo("$2")+`
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $3 OFFSET $4
	`, conversationID, viewerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query messages by conversation: %w", err)
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}

	// Newest-first from the query; callers want the page in chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, total, nil
}

func (s *PostgresStore) MarkConversationRead(ctx context.Context, conversationID string, receiverID uuid.UUID, at time.Time) (int, error) {
	result, err := s.db.Exec(ctx, `
		UPDATE messages m
		SET is_read = TRUE,
		    status = CASE WHEN m.status IN ('sent', 'delivered') THEN 'read' ELSE m.status END,
		    updated_at = $3
		WHERE m.conversation_id = $1
		  AND m.receiver_id = $2
		  AND m.is_read = FALSE
		  AND m.status <> 'recalled'
		  AND `+visibleTo("$2"),
		conversationID, receiverID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation %s read: %w", conversationID, err)
	}
	return int(result.RowsAffected()), nil
}

func (s *PostgresStore) GetLatestIncomingMessage(ctx context.Context, conversationID string, userID uuid.UUID) (*models.Message, error) {
	incoming := `m.receiver_id = $2`
	if models.IsGroupConversation(conversationID) {
		incoming = `m.sender_id <> $2`
	}
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		WHERE m.conversation_id = $1
		  AND ` + incoming + `
		  AND m.status <> 'recalled'
		  AND ` + visibleTo("$2") + `
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1
	`
	msg, err := scanMessage(s.db.QueryRow(ctx, query, conversationID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get latest incoming message: %w", err)
	}
	return msg, nil
}

func (s *PostgresStore) HideMessages(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID, at time.Time) error {
	batch := &pgx.Batch{}
	for _, id := range messageIDs {
		batch.Queue(`
			INSERT INTO message_hidden (message_id, user_id, hidden_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, id, userID, at)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range messageIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to hide message for user %s: %w", userID, err)
		}
	}
	return nil
}

func (s *PostgresStore) HideConversation(ctx context.Context, conversationID string, userID uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO message_hidden (message_id, user_id, hidden_at)
		SELECT m.id, $2, $3 FROM messages m WHERE m.conversation_id = $1
		ON CONFLICT DO NOTHING
	`, conversationID, userID, at)
	if err != nil {
		return fmt.Errorf("failed to hide conversation %s: %w", conversationID, err)
	}
	return nil
}

func (s *PostgresStore) IsMessageHidden(ctx context.Context, userID, messageID uuid.UUID) (bool, error) {
	var hidden bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM message_hidden WHERE message_id = $1 AND user_id = $2)
	`, messageID, userID).Scan(&hidden)
	if err != nil {
		return false, fmt.Errorf("failed to check hidden message: %w", err)
	}
	return hidden, nil
}

func (s *PostgresStore) DeleteConversationMessages(ctx context.Context, conversationID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID); err != nil {
		return fmt.Errorf("failed to delete messages of conversation %s: %w", conversationID, err)
	}
	return nil
}

func (s *PostgresStore) SummarizeConversation(ctx context.Context, conversationID string, userID uuid.UUID, groupCursor *time.Time) (*models.ConversationSummary, error) {
	summary := &models.ConversationSummary{}

	unread := `m.receiver_id = $2 AND m.is_read = FALSE`
	args := []any{conversationID, userID}
	if groupCursor != nil {
		unread = `m.sender_id <> $2 AND m.created_at > $3`
		args = append(args, *groupCursor)
	}
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE `+unread+` AND m.status <> 'recalled')
		FROM messages m
		WHERE m.conversation_id = $1 AND `+visibleTo("$2"),
		args...,
	).Scan(&summary.VisibleCount, &summary.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize conversation %s: %w", conversationID, err)
	}
	if summary.VisibleCount == 0 {
		return summary, nil
	}

	last, err := scanMessage(s.db.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.conversation_id = $1 AND `+visibleTo("$2")+`
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1
	`, conversationID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load last message of %s: %w", conversationID, err)
	}
	summary.LastMessage = last
	return summary, nil
}

func (s *PostgresStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT conversation_id FROM messages
		UNION
		SELECT id FROM chat_groups
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation ids: %w", err)
	}
	return ids, nil
}
