package store

import (
	"context"
	"errors"
	"time"

	"pawpost-backend/internal/models"

	"github.com/google/uuid"
)

// MessageStore defines persistence operations for messages. It is the single source of truth
// for message content and life-cycle state.
type MessageStore interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error)

	// UpdateMessage persists the mutable fields: payload, isRead, status and the timestamps.
	UpdateMessage(ctx context.Context, message *models.Message) error

	// GetMessagesByConversation pages the messages visible to viewerID. Offset counts back from
	// the newest message; the page itself is returned oldest first along with the visible total.
	GetMessagesByConversation(ctx context.Context, conversationID string, viewerID uuid.UUID, limit, offset int) ([]*models.Message, int, error)

	// MarkConversationRead sets isRead on every visible, non-recalled message addressed to
	// receiverID and advances sent/delivered statuses to read. It returns the number of rows changed.
	MarkConversationRead(ctx context.Context, conversationID string, receiverID uuid.UUID, at time.Time) (int, error)

	// GetLatestIncomingMessage returns the newest visible, non-recalled message userID received in
	// the conversation, or ErrMessageNotFound.
	GetLatestIncomingMessage(ctx context.Context, conversationID string, userID uuid.UUID) (*models.Message, error)

	HideMessages(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID, at time.Time) error
	HideConversation(ctx context.Context, conversationID string, userID uuid.UUID, at time.Time) error
	IsMessageHidden(ctx context.Context, userID, messageID uuid.UUID) (bool, error)
	DeleteConversationMessages(ctx context.Context, conversationID string) error

	// SummarizeConversation computes userID's view of a conversation from source. A nil groupCursor
	// selects 1:1 accounting (unread = unread messages addressed to the user); otherwise unread
	// counts messages from others created after the cursor.
	SummarizeConversation(ctx context.Context, conversationID string, userID uuid.UUID, groupCursor *time.Time) (*models.ConversationSummary, error)

	ListConversationIDs(ctx context.Context) ([]string, error)
}

// BlockStore keeps the ordered (blocker, blocked) relation.
type BlockStore interface {
	Block(ctx context.Context, blockerID, blockedID uuid.UUID, at time.Time) error
	Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	IsBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
	ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]models.BlockRelation, error)
}

// UserStore defines the interface for user data operations.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error)
}

// GroupStore defines persistence for group conversations and their members' read cursors.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	DeleteGroup(ctx context.Context, groupID string) error
	SetReadCursor(ctx context.Context, groupID string, userID uuid.UUID, at time.Time) error
	GetReadCursor(ctx context.Context, groupID string, userID uuid.UUID) (time.Time, error)
}

// Store bundles every repository behind one transactional boundary.
type Store interface {
	MessageStore
	BlockStore
	UserStore
	GroupStore

	// InTx runs fn against a transactional view. If fn returns an error nothing it wrote is kept.
	// Calling InTx on a transactional view joins the surrounding transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrGroupNotFound   = errors.New("group not found")
	ErrGroupExists     = errors.New("group already exists")
	ErrNotGroupMember  = errors.New("user is not a group member")
)
