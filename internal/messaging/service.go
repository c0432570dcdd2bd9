package messaging

import (
	"context"
	"errors"
	"time"

	"pawpost-backend/internal/conversation"
	"pawpost-backend/internal/models"
	"pawpost-backend/internal/presence"
	"pawpost-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	recentUnreadLimit = 5
)

// Options tunes service behaviour.
type Options struct {
	// RecallWindow bounds how long after creation a message may be recalled. Zero disables the limit.
	RecallWindow time.Duration
}

// Service exposes the message life-cycle and conversation queries. Every mutation runs in one
// store transaction while holding the locks of the conversations it touches; the conversation
// index is refreshed from the transaction and installed after commit.
type Service struct {
	store    store.Store
	index    *conversation.Index
	presence presence.Tracker
	logger   *zap.Logger
	locks    *keyedMutex
	opts     Options
	now      func() time.Time
}

func NewService(s store.Store, tracker presence.Tracker, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    s,
		index:    conversation.NewIndex(),
		presence: tracker,
		logger:   logger.Named("messaging"),
		locks:    newKeyedMutex(),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Rebuild recomputes the conversation index from the store. Run it once before serving traffic.
func (s *Service) Rebuild(ctx context.Context) error {
	if err := s.index.Rebuild(ctx, s.store); err != nil {
		return classify(err)
	}
	return nil
}

// clock returns the current time at the precision every store keeps.
func (s *Service) clock() time.Time {
	return s.now().Truncate(time.Microsecond)
}

// mutate locks the given conversations, runs fn in a transaction and refreshes the index entries
// of those conversations. Nothing is installed if fn or the commit fails.
func (s *Service) mutate(ctx context.Context, conversationIDs []string, fn func(tx store.Store) error) error {
	unlock := s.locks.Lock(conversationIDs...)
	defer unlock()

	var snaps []*conversation.Snapshot
	err := s.store.InTx(ctx, func(tx store.Store) error {
		if err := fn(tx); err != nil {
			return err
		}
		snaps = snaps[:0]
		seen := make(map[string]struct{}, len(conversationIDs))
		for _, id := range conversationIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			snap, err := conversation.Compute(ctx, tx, id)
			if err != nil {
				return err
			}
			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}
	s.index.Install(snaps...)
	return nil
}

// newest returns the latest message of a conversation regardless of who hid what, or nil.
// The platform account never hides messages, so its view is the full log.
func newest(ctx context.Context, tx store.Store, conversationID string) (*models.Message, error) {
	page, _, err := tx.GetMessagesByConversation(ctx, conversationID, models.PlatformUserID, 1, 0)
	if err != nil || len(page) == 0 {
		return nil, err
	}
	return page[0], nil
}

// stamp picks a creation time for a new message that sorts strictly after everything already in
// the conversation, so chat-log order matches commit order.
func (s *Service) stamp(ctx context.Context, tx store.Store, conversationID string) (time.Time, error) {
	at := s.clock()
	last, err := newest(ctx, tx, conversationID)
	if err != nil {
		return time.Time{}, err
	}
	if last != nil && !at.After(last.CreatedAt) {
		at = last.CreatedAt.Add(time.Microsecond)
	}
	return at, nil
}

// checkParticipant fails unless userID belongs to the conversation.
func checkParticipant(ctx context.Context, tx store.Store, conversationID string, userID uuid.UUID) error {
	members, _, err := conversation.Participants(ctx, tx, conversationID)
	if err != nil {
		if errors.Is(err, models.ErrInvalidConversationID) {
			return failf(ErrValidation, "%v", err)
		}
		return err
	}
	for _, id := range members {
		if id == userID {
			return nil
		}
	}
	return failf(ErrForbidden, "user %s is not a participant of %s", userID, conversationID)
}

func validateConversationID(id string) error {
	if err := models.ValidateConversationID(id); err != nil {
		return failf(ErrValidation, "%v", err)
	}
	return nil
}

// dedupe drops repeated ids, keeping first-seen order.
func dedupe[T comparable](ids []T) []T {
	out := make([]T, 0, len(ids))
	seen := make(map[T]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
