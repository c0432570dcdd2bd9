package conversation

import (
	"context"
	"testing"
	"time"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/store"

	"github.com/google/uuid"
)

var base = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *store.MemoryStore, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		if err := s.CreateUser(context.Background(), &models.User{ID: ids[i], Email: ids[i].String(), CreatedAt: base, UpdatedAt: base}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return ids
}

func send(t *testing.T, s *store.MemoryStore, from, to uuid.UUID, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: models.DirectConversationID(from, to),
		SenderID:       from,
		ReceiverID:     to,
		Kind:           models.KindText,
		Payload:        models.TextPayload{Content: "woof"},
		Status:         models.StatusSent,
		CreatedAt:      at,
	}
	if err := s.CreateMessage(context.Background(), msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	return msg
}

func TestComputeDirectConversation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := seed(t, s, 2)
	send(t, s, users[0], users[1], base)
	last := send(t, s, users[0], users[1], base.Add(time.Minute))

	snap, err := Compute(ctx, s, last.ConversationID)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	receiver, ok := snap.Entries[users[1]]
	if !ok {
		t.Fatal("receiver has no entry")
	}
	if receiver.UnreadCount != 2 || receiver.LastMessage.ID != last.ID || !receiver.UpdatedAt.Equal(last.CreatedAt) {
		t.Fatalf("receiver entry = %+v", receiver)
	}
	if sender := snap.Entries[users[0]]; sender.UnreadCount != 0 {
		t.Fatalf("sender unread = %d", sender.UnreadCount)
	}

	if err := s.HideConversation(ctx, last.ConversationID, users[1], base.Add(time.Hour)); err != nil {
		t.Fatalf("HideConversation: %v", err)
	}
	snap, err = Compute(ctx, s, last.ConversationID)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if _, ok := snap.Entries[users[1]]; ok {
		t.Fatal("a fully hidden conversation still has an entry")
	}
	if _, ok := snap.Entries[users[0]]; !ok {
		t.Fatal("hiding for one user removed the other user's entry")
	}
}

func TestComputeGroupWithoutMessages(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := seed(t, s, 3)
	group := &models.Group{ID: models.NewGroupConversationID(), Name: "Puppy class", OwnerID: users[0], MemberIDs: users, CreatedAt: base}
	if err := s.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	snap, err := Compute(ctx, s, group.ID)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(snap.Entries) != 3 {
		t.Fatalf("entries = %d, want one per member", len(snap.Entries))
	}
	for _, entry := range snap.Entries {
		if !entry.IsGroup() || !entry.UpdatedAt.Equal(base) || entry.LastMessage != nil {
			t.Fatalf("entry = %+v", entry)
		}
	}

	if err := s.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	snap, err = Compute(ctx, s, group.ID)
	if err != nil || len(snap.Entries) != 0 {
		t.Fatalf("deleted group snapshot = %+v, %v", snap, err)
	}
}

func TestIndexInstallAndOrdering(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := seed(t, s, 3)
	older := send(t, s, users[1], users[0], base)
	newer := send(t, s, users[2], users[0], base.Add(time.Minute))

	idx := NewIndex()
	if err := idx.Rebuild(ctx, s); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	entries := idx.ForUser(users[0])
	if len(entries) != 2 || entries[0].ConversationID != newer.ConversationID || entries[1].ConversationID != older.ConversationID {
		t.Fatalf("order = %+v", entries)
	}

	// An empty snapshot drops the conversation for everyone.
	idx.Install(&Snapshot{ConversationID: newer.ConversationID, Entries: map[uuid.UUID]Entry{}})
	if _, ok := idx.Get(newer.ConversationID, users[2]); ok {
		t.Fatal("entry survived an empty snapshot")
	}
	if entries := idx.ForUser(users[0]); len(entries) != 1 {
		t.Fatalf("entries after removal = %d", len(entries))
	}
}

func TestSortByActivityTieBreak(t *testing.T) {
	entries := []Entry{
		{ConversationID: "dm:b", UpdatedAt: base},
		{ConversationID: "dm:a", UpdatedAt: base},
		{ConversationID: "dm:c", UpdatedAt: base.Add(time.Second)},
	}
	SortByActivity(entries)
	got := []string{entries[0].ConversationID, entries[1].ConversationID, entries[2].ConversationID}
	want := []string{"dm:c", "dm:a", "dm:b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
