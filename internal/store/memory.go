package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pawpost-backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It backs local development and tests when no
// DATABASE_URL is configured. Writes run under a single lock and are undone if the surrounding
// transaction fails.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memoryData
}

var _ Store = (*MemoryStore)(nil)

type blockKey struct {
	blocker uuid.UUID
	blocked uuid.UUID
}

type memoryData struct {
	messages       map[uuid.UUID]*models.Message
	byConversation map[string][]uuid.UUID
	hidden         map[uuid.UUID]map[uuid.UUID]struct{} // message id -> user ids
	blocks         map[blockKey]time.Time
	users          map[uuid.UUID]*models.User
	emails         map[string]uuid.UUID
	groups         map[string]*models.Group
	cursors        map[string]map[uuid.UUID]time.Time // group id -> member -> last read
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{
		messages:       make(map[uuid.UUID]*models.Message),
		byConversation: make(map[string][]uuid.UUID),
		hidden:         make(map[uuid.UUID]map[uuid.UUID]struct{}),
		blocks:         make(map[blockKey]time.Time),
		users:          make(map[uuid.UUID]*models.User),
		emails:         make(map[string]uuid.UUID),
		groups:         make(map[string]*models.Group),
		cursors:        make(map[string]map[uuid.UUID]time.Time),
	}}
}

// InTx holds the write lock for the whole of fn and replays the undo log in reverse if fn fails.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var undo []func()
	if err := fn(&memoryTx{data: s.data, undo: &undo}); err != nil {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return err
	}
	return nil
}

func (s *MemoryStore) view() *memoryTx {
	return &memoryTx{data: s.data}
}

func (s *MemoryStore) CreateMessage(ctx context.Context, message *models.Message) error {
	return s.InTx(ctx, func(tx Store) error { return tx.CreateMessage(ctx, message) })
}

func (s *MemoryStore) GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetMessageByID(ctx, messageID)
}

func (s *MemoryStore) UpdateMessage(ctx context.Context, message *models.Message) error {
	return s.InTx(ctx, func(tx Store) error { return tx.UpdateMessage(ctx, message) })
}

func (s *MemoryStore) GetMessagesByConversation(ctx context.Context, conversationID string, viewerID uuid.UUID, limit, offset int) ([]*models.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetMessagesByConversation(ctx, conversationID, viewerID, limit, offset)
}

func (s *MemoryStore) MarkConversationRead(ctx context.Context, conversationID string, receiverID uuid.UUID, at time.Time) (int, error) {
	var n int
	err := s.InTx(ctx, func(tx Store) error {
		var err error
		n, err = tx.MarkConversationRead(ctx, conversationID, receiverID, at)
		return err
	})
	return n, err
}

func (s *MemoryStore) GetLatestIncomingMessage(ctx context.Context, conversationID string, userID uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetLatestIncomingMessage(ctx, conversationID, userID)
}

func (s *MemoryStore) HideMessages(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID, at time.Time) error {
	return s.InTx(ctx, func(tx Store) error { return tx.HideMessages(ctx, userID, messageIDs, at) })
}

func (s *MemoryStore) HideConversation(ctx context.Context, conversationID string, userID uuid.UUID, at time.Time) error {
	return s.InTx(ctx, func(tx Store) error { return tx.HideConversation(ctx, conversationID, userID, at) })
}

func (s *MemoryStore) IsMessageHidden(ctx context.Context, userID, messageID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().IsMessageHidden(ctx, userID, messageID)
}

func (s *MemoryStore) DeleteConversationMessages(ctx context.Context, conversationID string) error {
	return s.InTx(ctx, func(tx Store) error { return tx.DeleteConversationMessages(ctx, conversationID) })
}

func (s *MemoryStore) SummarizeConversation(ctx context.Context, conversationID string, userID uuid.UUID, groupCursor *time.Time) (*models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().SummarizeConversation(ctx, conversationID, userID, groupCursor)
}

func (s *MemoryStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListConversationIDs(ctx)
}

func (s *MemoryStore) Block(ctx context.Context, blockerID, blockedID uuid.UUID, at time.Time) error {
	return s.InTx(ctx, func(tx Store) error { return tx.Block(ctx, blockerID, blockedID, at) })
}

func (s *MemoryStore) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return s.InTx(ctx, func(tx Store) error { return tx.Unblock(ctx, blockerID, blockedID) })
}

func (s *MemoryStore) IsBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().IsBlocked(ctx, blockerID, blockedID)
}

func (s *MemoryStore) ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]models.BlockRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListBlocked(ctx, blockerID)
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.InTx(ctx, func(tx Store) error { return tx.CreateUser(ctx, user) })
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetUserByEmail(ctx, email)
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetUserByID(ctx, id)
}

func (s *MemoryStore) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetUsersByIDs(ctx, ids)
}

func (s *MemoryStore) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().SearchUsers(ctx, query, limit)
}

func (s *MemoryStore) CreateGroup(ctx context.Context, group *models.Group) error {
	return s.InTx(ctx, func(tx Store) error { return tx.CreateGroup(ctx, group) })
}

func (s *MemoryStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetGroup(ctx, groupID)
}

func (s *MemoryStore) DeleteGroup(ctx context.Context, groupID string) error {
	return s.InTx(ctx, func(tx Store) error { return tx.DeleteGroup(ctx, groupID) })
}

func (s *MemoryStore) SetReadCursor(ctx context.Context, groupID string, userID uuid.UUID, at time.Time) error {
	return s.InTx(ctx, func(tx Store) error { return tx.SetReadCursor(ctx, groupID, userID, at) })
}

func (s *MemoryStore) GetReadCursor(ctx context.Context, groupID string, userID uuid.UUID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetReadCursor(ctx, groupID, userID)
}

// memoryTx operates on the shared data without locking; the owning MemoryStore holds the lock.
// A nil undo log marks a read-only view.
type memoryTx struct {
	data *memoryData
	undo *[]func()
}

func (tx *memoryTx) onRollback(fn func()) {
	if tx.undo != nil {
		*tx.undo = append(*tx.undo, fn)
	}
}

func (tx *memoryTx) InTx(_ context.Context, fn func(tx Store) error) error {
	return fn(tx)
}

func messageLess(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (tx *memoryTx) isHidden(messageID, userID uuid.UUID) bool {
	_, ok := tx.data.hidden[messageID][userID]
	return ok
}

// visibleMessages returns the conversation's messages userID has not hidden, oldest first.
// The returned pointers are the stored values; callers clone before handing them out.
func (tx *memoryTx) visibleMessages(conversationID string, userID uuid.UUID) []*models.Message {
	ids := tx.data.byConversation[conversationID]
	out := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		if tx.isHidden(id, userID) {
			continue
		}
		out = append(out, tx.data.messages[id])
	}
	sort.Slice(out, func(i, j int) bool { return messageLess(out[i], out[j]) })
	return out
}

func (tx *memoryTx) CreateMessage(_ context.Context, message *models.Message) error {
	stored := message.Clone()
	tx.data.messages[stored.ID] = stored
	tx.data.byConversation[stored.ConversationID] = append(tx.data.byConversation[stored.ConversationID], stored.ID)
	tx.onRollback(func() {
		delete(tx.data.messages, stored.ID)
		ids := tx.data.byConversation[stored.ConversationID]
		if len(ids) <= 1 {
			delete(tx.data.byConversation, stored.ConversationID)
			return
		}
		tx.data.byConversation[stored.ConversationID] = ids[:len(ids)-1]
	})
	return nil
}

func (tx *memoryTx) GetMessageByID(_ context.Context, messageID uuid.UUID) (*models.Message, error) {
	msg, ok := tx.data.messages[messageID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return msg.Clone(), nil
}

func (tx *memoryTx) UpdateMessage(_ context.Context, message *models.Message) error {
	current, ok := tx.data.messages[message.ID]
	if !ok {
		return ErrMessageNotFound
	}
	previous := current.Clone()
	current.Payload = message.Payload
	current.IsRead = message.IsRead
	current.Status = message.Status
	current.UpdatedAt = message.Clone().UpdatedAt
	current.RecalledAt = message.Clone().RecalledAt
	tx.onRollback(func() { *current = *previous })
	return nil
}

func (tx *memoryTx) GetMessagesByConversation(_ context.Context, conversationID string, viewerID uuid.UUID, limit, offset int) ([]*models.Message, int, error) {
	visible := tx.visibleMessages(conversationID, viewerID)
	total := len(visible)

	end := total - offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	page := make([]*models.Message, 0, end-start)
	for _, msg := range visible[start:end] {
		page = append(page, msg.Clone())
	}
	return page, total, nil
}

func (tx *memoryTx) MarkConversationRead(_ context.Context, conversationID string, receiverID uuid.UUID, at time.Time) (int, error) {
	changed := 0
	for _, msg := range tx.visibleMessages(conversationID, receiverID) {
		if msg.ReceiverID != receiverID || msg.IsRead || msg.IsRecalled() {
			continue
		}
		previous := msg.Clone()
		target := msg
		tx.onRollback(func() { *target = *previous })

		msg.IsRead = true
		if msg.Status == models.StatusSent || msg.Status == models.StatusDelivered {
			msg.Status = models.StatusRead
		}
		msg.Touch(at)
		changed++
	}
	return changed, nil
}

func (tx *memoryTx) GetLatestIncomingMessage(_ context.Context, conversationID string, userID uuid.UUID) (*models.Message, error) {
	group := models.IsGroupConversation(conversationID)
	visible := tx.visibleMessages(conversationID, userID)
	for i := len(visible) - 1; i >= 0; i-- {
		msg := visible[i]
		if msg.IsRecalled() {
			continue
		}
		if (group && msg.SenderID != userID) || (!group && msg.ReceiverID == userID) {
			return msg.Clone(), nil
		}
	}
	return nil, ErrMessageNotFound
}

func (tx *memoryTx) hide(messageID, userID uuid.UUID) {
	users, ok := tx.data.hidden[messageID]
	if !ok {
		users = make(map[uuid.UUID]struct{})
		tx.data.hidden[messageID] = users
	}
	if _, already := users[userID]; already {
		return
	}
	users[userID] = struct{}{}
	tx.onRollback(func() {
		delete(users, userID)
		if len(users) == 0 {
			delete(tx.data.hidden, messageID)
		}
	})
}

func (tx *memoryTx) HideMessages(_ context.Context, userID uuid.UUID, messageIDs []uuid.UUID, _ time.Time) error {
	for _, id := range messageIDs {
		if _, ok := tx.data.messages[id]; !ok {
			return ErrMessageNotFound
		}
		tx.hide(id, userID)
	}
	return nil
}

func (tx *memoryTx) HideConversation(_ context.Context, conversationID string, userID uuid.UUID, _ time.Time) error {
	for _, id := range tx.data.byConversation[conversationID] {
		tx.hide(id, userID)
	}
	return nil
}

func (tx *memoryTx) IsMessageHidden(_ context.Context, userID, messageID uuid.UUID) (bool, error) {
	return tx.isHidden(messageID, userID), nil
}

func (tx *memoryTx) DeleteConversationMessages(_ context.Context, conversationID string) error {
	ids, ok := tx.data.byConversation[conversationID]
	if !ok {
		return nil
	}
	removed := make(map[uuid.UUID]*models.Message, len(ids))
	removedHidden := make(map[uuid.UUID]map[uuid.UUID]struct{})
	for _, id := range ids {
		removed[id] = tx.data.messages[id]
		delete(tx.data.messages, id)
		if users, ok := tx.data.hidden[id]; ok {
			removedHidden[id] = users
			delete(tx.data.hidden, id)
		}
	}
	delete(tx.data.byConversation, conversationID)

	tx.onRollback(func() {
		tx.data.byConversation[conversationID] = ids
		for id, msg := range removed {
			tx.data.messages[id] = msg
		}
		for id, users := range removedHidden {
			tx.data.hidden[id] = users
		}
	})
	return nil
}

func (tx *memoryTx) SummarizeConversation(_ context.Context, conversationID string, userID uuid.UUID, groupCursor *time.Time) (*models.ConversationSummary, error) {
	visible := tx.visibleMessages(conversationID, userID)
	summary := &models.ConversationSummary{VisibleCount: len(visible)}
	for _, msg := range visible {
		if msg.IsRecalled() {
			continue
		}
		if groupCursor == nil {
			if msg.ReceiverID == userID && !msg.IsRead {
				summary.UnreadCount++
			}
			continue
		}
		if msg.SenderID != userID && msg.CreatedAt.After(*groupCursor) {
			summary.UnreadCount++
		}
	}
	if len(visible) > 0 {
		summary.LastMessage = visible[len(visible)-1].Clone()
	}
	return summary, nil
}

func (tx *memoryTx) ListConversationIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{}, len(tx.data.byConversation)+len(tx.data.groups))
	for id := range tx.data.byConversation {
		seen[id] = struct{}{}
	}
	for id := range tx.data.groups {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (tx *memoryTx) Block(_ context.Context, blockerID, blockedID uuid.UUID, at time.Time) error {
	key := blockKey{blocker: blockerID, blocked: blockedID}
	if _, ok := tx.data.blocks[key]; ok {
		return nil
	}
	tx.data.blocks[key] = at
	tx.onRollback(func() { delete(tx.data.blocks, key) })
	return nil
}

func (tx *memoryTx) Unblock(_ context.Context, blockerID, blockedID uuid.UUID) error {
	key := blockKey{blocker: blockerID, blocked: blockedID}
	at, ok := tx.data.blocks[key]
	if !ok {
		return nil
	}
	delete(tx.data.blocks, key)
	tx.onRollback(func() { tx.data.blocks[key] = at })
	return nil
}

func (tx *memoryTx) IsBlocked(_ context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	_, ok := tx.data.blocks[blockKey{blocker: blockerID, blocked: blockedID}]
	return ok, nil
}

func (tx *memoryTx) ListBlocked(_ context.Context, blockerID uuid.UUID) ([]models.BlockRelation, error) {
	relations := make([]models.BlockRelation, 0)
	for key, at := range tx.data.blocks {
		if key.blocker == blockerID {
			relations = append(relations, models.BlockRelation{BlockerID: key.blocker, BlockedID: key.blocked, CreatedAt: at})
		}
	}
	sort.Slice(relations, func(i, j int) bool {
		if !relations[i].CreatedAt.Equal(relations[j].CreatedAt) {
			return relations[i].CreatedAt.After(relations[j].CreatedAt)
		}
		return relations[i].BlockedID.String() < relations[j].BlockedID.String()
	})
	return relations, nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (tx *memoryTx) CreateUser(_ context.Context, user *models.User) error {
	if _, ok := tx.data.emails[user.Email]; ok {
		return ErrEmailExists
	}
	tx.data.users[user.ID] = cloneUser(user)
	tx.data.emails[user.Email] = user.ID
	tx.onRollback(func() {
		delete(tx.data.users, user.ID)
		delete(tx.data.emails, user.Email)
	})
	return nil
}

func (tx *memoryTx) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	id, ok := tx.data.emails[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(tx.data.users[id]), nil
}

func (tx *memoryTx) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := tx.data.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (tx *memoryTx) GetUsersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	users := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := tx.data.users[id]; ok {
			users[id] = cloneUser(user)
		}
	}
	return users, nil
}

func (tx *memoryTx) SearchUsers(_ context.Context, query string, limit int) ([]*models.User, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]*models.User, 0)
	for _, user := range tx.data.users {
		if strings.Contains(strings.ToLower(user.Name), needle) || strings.Contains(strings.ToLower(user.Email), needle) {
			matches = append(matches, cloneUser(user))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cloneGroup(g *models.Group) *models.Group {
	c := *g
	c.MemberIDs = append([]uuid.UUID(nil), g.MemberIDs...)
	return &c
}

func (tx *memoryTx) CreateGroup(_ context.Context, group *models.Group) error {
	if _, ok := tx.data.groups[group.ID]; ok {
		return ErrGroupExists
	}
	stored := cloneGroup(group)
	cursors := make(map[uuid.UUID]time.Time, len(stored.MemberIDs))
	for _, id := range stored.MemberIDs {
		cursors[id] = stored.CreatedAt
	}
	tx.data.groups[stored.ID] = stored
	tx.data.cursors[stored.ID] = cursors
	tx.onRollback(func() {
		delete(tx.data.groups, stored.ID)
		delete(tx.data.cursors, stored.ID)
	})
	return nil
}

func (tx *memoryTx) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	group, ok := tx.data.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return cloneGroup(group), nil
}

func (tx *memoryTx) DeleteGroup(_ context.Context, groupID string) error {
	group, ok := tx.data.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	cursors := tx.data.cursors[groupID]
	delete(tx.data.groups, groupID)
	delete(tx.data.cursors, groupID)
	tx.onRollback(func() {
		tx.data.groups[groupID] = group
		tx.data.cursors[groupID] = cursors
	})
	return nil
}

func (tx *memoryTx) SetReadCursor(_ context.Context, groupID string, userID uuid.UUID, at time.Time) error {
	cursors, ok := tx.data.cursors[groupID]
	if !ok {
		return ErrNotGroupMember
	}
	previous, ok := cursors[userID]
	if !ok {
		return ErrNotGroupMember
	}
	cursors[userID] = at
	tx.onRollback(func() { cursors[userID] = previous })
	return nil
}

func (tx *memoryTx) GetReadCursor(_ context.Context, groupID string, userID uuid.UUID) (time.Time, error) {
	at, ok := tx.data.cursors[groupID][userID]
	if !ok {
		return time.Time{}, ErrNotGroupMember
	}
	return at, nil
}
