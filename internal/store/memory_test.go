package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"pawpost-backend/internal/models"

	"github.com/google/uuid"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seedUsers(t *testing.T, s *MemoryStore, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		err := s.CreateUser(context.Background(), &models.User{
			ID:             ids[i],
			Name:           "user",
			Email:          ids[i].String() + "@example.com",
			HashedPassword: "x",
			CreatedAt:      base,
			UpdatedAt:      base,
		})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return ids
}

func newText(conv string, from, to uuid.UUID, at time.Time, content string) *models.Message {
	return &models.Message{
		ID:             uuid.New(),
		ConversationID: conv,
		SenderID:       from,
		ReceiverID:     to,
		Kind:           models.KindText,
		Payload:        models.TextPayload{Content: content},
		Status:         models.StatusSent,
		CreatedAt:      at,
	}
}

func TestMemoryStoreRollsBackFailedTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	users := seedUsers(t, s, 2)
	conv := models.DirectConversationID(users[0], users[1])

	kept := newText(conv, users[0], users[1], base, "kept")
	if err := s.CreateMessage(ctx, kept); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx Store) error {
		if err := tx.CreateMessage(ctx, newText(conv, users[1], users[0], base.Add(time.Second), "lost")); err != nil {
			return err
		}
		if err := tx.HideMessages(ctx, users[1], []uuid.UUID{kept.ID}, base); err != nil {
			return err
		}
		if err := tx.Block(ctx, users[1], users[0], base); err != nil {
			return err
		}
		updated, err := tx.GetMessageByID(ctx, kept.ID)
		if err != nil {
			return err
		}
		updated.IsRead = true
		if err := tx.UpdateMessage(ctx, updated); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}

	msgs, total, err := s.GetMessagesByConversation(ctx, conv, users[1], 10, 0)
	if err != nil {
		t.Fatalf("GetMessagesByConversation: %v", err)
	}
	if total != 1 || len(msgs) != 1 || msgs[0].ID != kept.ID {
		t.Fatalf("after rollback: total=%d msgs=%v", total, msgs)
	}
	if msgs[0].IsRead {
		t.Fatal("rolled back update is still visible")
	}
	if blocked, _ := s.IsBlocked(ctx, users[1], users[0]); blocked {
		t.Fatal("rolled back block is still visible")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	users := seedUsers(t, s, 2)
	conv := models.DirectConversationID(users[0], users[1])
	msg := newText(conv, users[0], users[1], base, "hi")
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	got, err := s.GetMessageByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessageByID: %v", err)
	}
	got.Status = models.StatusRead
	again, _ := s.GetMessageByID(ctx, msg.ID)
	if again.Status != models.StatusSent {
		t.Fatal("mutating a returned message changed the store")
	}
}

func TestMemoryStorePagingAndVisibility(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	users := seedUsers(t, s, 2)
	conv := models.DirectConversationID(users[0], users[1])

	var ids []uuid.UUID
	for i, content := range []string{"one", "two", "three", "four"} {
		msg := newText(conv, users[0], users[1], base.Add(time.Duration(i)*time.Second), content)
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	page, total, err := s.GetMessagesByConversation(ctx, conv, users[1], 2, 1)
	if err != nil {
		t.Fatalf("GetMessagesByConversation: %v", err)
	}
	if total != 4 || len(page) != 2 || page[0].ID != ids[1] || page[1].ID != ids[2] {
		t.Fatalf("page = %v, total = %d", page, total)
	}

	if err := s.HideMessages(ctx, users[1], []uuid.UUID{ids[3]}, base); err != nil {
		t.Fatalf("HideMessages: %v", err)
	}
	summary, err := s.SummarizeConversation(ctx, conv, users[1], nil)
	if err != nil {
		t.Fatalf("SummarizeConversation: %v", err)
	}
	if summary.VisibleCount != 3 || summary.UnreadCount != 3 || summary.LastMessage.ID != ids[2] {
		t.Fatalf("receiver summary = %+v", summary)
	}
	senderView, _ := s.SummarizeConversation(ctx, conv, users[0], nil)
	if senderView.VisibleCount != 4 || senderView.UnreadCount != 0 {
		t.Fatalf("sender summary = %+v", senderView)
	}

	changed, err := s.MarkConversationRead(ctx, conv, users[1], base.Add(time.Minute))
	if err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}
	if changed != 3 {
		t.Fatalf("MarkConversationRead changed %d, want 3 visible messages", changed)
	}
	hidden, _ := s.GetMessageByID(ctx, ids[3])
	if hidden.IsRead {
		t.Fatal("a hidden message was marked read")
	}
}

func TestMemoryStoreUsersAndGroups(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	users := seedUsers(t, s, 3)

	dup := &models.User{ID: uuid.New(), Email: users[0].String() + "@example.com"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email error = %v", err)
	}
	if _, err := s.GetUserByID(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user error = %v", err)
	}
	found, err := s.GetUsersByIDs(ctx, []uuid.UUID{users[0], uuid.New()})
	if err != nil || len(found) != 1 {
		t.Fatalf("GetUsersByIDs = %v, %v", found, err)
	}

	group := &models.Group{ID: models.NewGroupConversationID(), Name: "Shelter volunteers", OwnerID: users[0], MemberIDs: users, CreatedAt: base}
	if err := s.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	cursor, err := s.GetReadCursor(ctx, group.ID, users[1])
	if err != nil || !cursor.Equal(base) {
		t.Fatalf("initial cursor = %v, %v", cursor, err)
	}
	if err := s.SetReadCursor(ctx, group.ID, users[1], base.Add(-time.Second)); err != nil {
		t.Fatalf("SetReadCursor: %v", err)
	}
	if cursor, _ := s.GetReadCursor(ctx, group.ID, users[1]); !cursor.Equal(base.Add(-time.Second)) {
		t.Fatalf("cursor did not move back: %v", cursor)
	}

	if err := s.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, err := s.GetGroup(ctx, group.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("deleted group error = %v", err)
	}
}
