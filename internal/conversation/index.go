package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/store"

	"github.com/google/uuid"
)

// Entry is one user's view of one conversation.
type Entry struct {
	ConversationID string
	UserID         uuid.UUID
	ParticipantIDs []uuid.UUID
	LastMessage    *models.Message
	UnreadCount    int
	UpdatedAt      time.Time
	Group          *models.Group
}

// IsGroup reports whether the entry belongs to a group conversation.
func (e Entry) IsGroup() bool {
	return e.Group != nil
}

// Snapshot is the recomputed state of a single conversation for all of its participants.
// An empty Entries map means the conversation no longer exists for anyone.
type Snapshot struct {
	ConversationID string
	Entries        map[uuid.UUID]Entry
}

// Index holds the derived per-user conversation views. It is never written from outside:
// snapshots are computed from the store and installed once the mutation that produced them commits.
type Index struct {
	mu     sync.RWMutex
	views  map[string]map[uuid.UUID]Entry
	byUser map[uuid.UUID]map[string]struct{}
}

func NewIndex() *Index {
	return &Index{
		views:  make(map[string]map[uuid.UUID]Entry),
		byUser: make(map[uuid.UUID]map[string]struct{}),
	}
}

// Participants returns the member ids of a conversation as currently stored.
func Participants(ctx context.Context, s store.Store, conversationID string) ([]uuid.UUID, *models.Group, error) {
	if models.IsGroupConversation(conversationID) {
		group, err := s.GetGroup(ctx, conversationID)
		if err != nil {
			return nil, nil, err
		}
		return group.MemberIDs, group, nil
	}
	a, b, err := models.ParseDirectConversationID(conversationID)
	if err != nil {
		return nil, nil, err
	}
	return []uuid.UUID{a, b}, nil, nil
}

// Compute recomputes a conversation from source for every participant. Pass the transactional
// store so the result reflects the uncommitted writes of the current mutation.
func Compute(ctx context.Context, s store.Store, conversationID string) (*Snapshot, error) {
	snap := &Snapshot{ConversationID: conversationID, Entries: make(map[uuid.UUID]Entry)}

	members, group, err := Participants(ctx, s, conversationID)
	if errors.Is(err, store.ErrGroupNotFound) {
		return snap, nil
	}
	if err != nil {
		return nil, err
	}

	for _, userID := range members {
		if userID == models.PlatformUserID {
			continue
		}
		var cursor *time.Time
		if group != nil {
			at, err := s.GetReadCursor(ctx, conversationID, userID)
			if err != nil {
				return nil, fmt.Errorf("read cursor for %s in %s: %w", userID, conversationID, err)
			}
			cursor = &at
		}
		summary, err := s.SummarizeConversation(ctx, conversationID, userID, cursor)
		if err != nil {
			return nil, err
		}
		// A 1:1 conversation only exists for a user while they can see at least one message.
		if group == nil && summary.VisibleCount == 0 {
			continue
		}
		entry := Entry{
			ConversationID: conversationID,
			UserID:         userID,
			ParticipantIDs: members,
			LastMessage:    summary.LastMessage,
			UnreadCount:    summary.UnreadCount,
			Group:          group,
		}
		switch {
		case summary.LastMessage != nil:
			entry.UpdatedAt = summary.LastMessage.CreatedAt
		case group != nil:
			entry.UpdatedAt = group.CreatedAt
		}
		snap.Entries[userID] = entry
	}
	return snap, nil
}

// Install replaces the stored views of each snapshot's conversation.
func (idx *Index) Install(snaps ...*Snapshot) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, snap := range snaps {
		idx.installLocked(snap)
	}
}

func (idx *Index) installLocked(snap *Snapshot) {
	for userID := range idx.views[snap.ConversationID] {
		if convs, ok := idx.byUser[userID]; ok {
			delete(convs, snap.ConversationID)
			if len(convs) == 0 {
				delete(idx.byUser, userID)
			}
		}
	}
	if len(snap.Entries) == 0 {
		delete(idx.views, snap.ConversationID)
		return
	}
	entries := make(map[uuid.UUID]Entry, len(snap.Entries))
	for userID, entry := range snap.Entries {
		entries[userID] = entry
		convs, ok := idx.byUser[userID]
		if !ok {
			convs = make(map[string]struct{})
			idx.byUser[userID] = convs
		}
		convs[snap.ConversationID] = struct{}{}
	}
	idx.views[snap.ConversationID] = entries
}

// Rebuild discards the index and recomputes every conversation known to the store.
func (idx *Index) Rebuild(ctx context.Context, s store.Store) error {
	ids, err := s.ListConversationIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	snaps := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := Compute(ctx, s, id)
		if err != nil {
			return fmt.Errorf("failed to compute conversation %s: %w", id, err)
		}
		snaps = append(snaps, snap)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.views = make(map[string]map[uuid.UUID]Entry)
	idx.byUser = make(map[uuid.UUID]map[string]struct{})
	for _, snap := range snaps {
		idx.installLocked(snap)
	}
	return nil
}

// Get returns userID's view of a conversation.
func (idx *Index) Get(conversationID string, userID uuid.UUID) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.views[conversationID][userID]
	return entry, ok
}

// ForUser lists userID's conversations, most recently active first. Equal timestamps are
// ordered by conversation id.
func (idx *Index) ForUser(userID uuid.UUID) []Entry {
	idx.mu.RLock()
	entries := make([]Entry, 0, len(idx.byUser[userID]))
	for convID := range idx.byUser[userID] {
		entries = append(entries, idx.views[convID][userID])
	}
	idx.mu.RUnlock()

	SortByActivity(entries)
	return entries
}

// SortByActivity orders entries by UpdatedAt descending, then by conversation id.
func SortByActivity(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		}
		return entries[i].ConversationID < entries[j].ConversationID
	})
}
