package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	directPrefix = "dm:"
	groupPrefix  = "group:"
)

var ErrInvalidConversationID = errors.New("invalid conversation id")

// PlatformUserID is the sender of messages emitted by the platform rather than a user.
var PlatformUserID = uuid.Nil

// DirectConversationID returns the canonical pair key for a 1:1 conversation.
// The key does not depend on argument order.
func DirectConversationID(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if lo > hi {
		lo, hi = hi, lo
	}
	return directPrefix + lo + ":" + hi
}

// NewGroupConversationID allocates a fresh group conversation id.
func NewGroupConversationID() string {
	return groupPrefix + uuid.NewString()
}

// IsGroupConversation reports whether id names a group conversation.
func IsGroupConversation(id string) bool {
	return strings.HasPrefix(id, groupPrefix)
}

// ParseDirectConversationID returns the two participants encoded in a 1:1 conversation id.
func ParseDirectConversationID(id string) (uuid.UUID, uuid.UUID, error) {
	rest, ok := strings.CutPrefix(id, directPrefix)
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	left, right, ok := strings.Cut(rest, ":")
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	a, err := uuid.Parse(left)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	b, err := uuid.Parse(right)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	if DirectConversationID(a, b) != id {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q is not canonical", ErrInvalidConversationID, id)
	}
	return a, b, nil
}

// ValidateConversationID checks the id is either a canonical pair key or a group id.
func ValidateConversationID(id string) error {
	if rest, ok := strings.CutPrefix(id, groupPrefix); ok {
		if _, err := uuid.Parse(rest); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
		}
		return nil
	}
	_, _, err := ParseDirectConversationID(id)
	return err
}

// Participant is a conversation member as shown in conversation lists.
type Participant struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Avatar   *string   `json:"avatar,omitempty"`
	IsOnline *bool     `json:"isOnline,omitempty"`
}

// Conversation is the per-user aggregate view of one conversation. It is derived from the
// message store and never written directly.
type Conversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	UnreadCount  int           `json:"unreadCount"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	IsGroup      bool          `json:"isGroup"`
	GroupName    *string       `json:"groupName,omitempty"`
	GroupAvatar  *string       `json:"groupAvatar,omitempty"`
}

// ConversationSummary is what the store reports for one user's view of a conversation.
type ConversationSummary struct {
	LastMessage  *Message
	UnreadCount  int
	VisibleCount int
}

// Group is an explicitly created multi-party conversation.
type Group struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Avatar    *string     `json:"avatar,omitempty"`
	OwnerID   uuid.UUID   `json:"ownerId"`
	MemberIDs []uuid.UUID `json:"memberIds"`
	CreatedAt time.Time   `json:"createdAt"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID uuid.UUID) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Statistics summarises a user's inbox.
type Statistics struct {
	TotalUnread               int             `json:"totalUnread"`
	TotalConversations        int             `json:"totalConversations"`
	RecentUnreadConversations []*Conversation `json:"recentUnreadConversations"`
}

// BlockRelation records that BlockerID refuses new messages from BlockedID.
type BlockRelation struct {
	BlockerID uuid.UUID `json:"blockerId"`
	BlockedID uuid.UUID `json:"blockedId"`
	CreatedAt time.Time `json:"createdAt"`
}
