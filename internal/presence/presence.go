package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker records heartbeats and answers whether users are currently online.
type Tracker interface {
	Heartbeat(ctx context.Context, userID uuid.UUID) error
	Online(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

// MemoryTracker is the in-process Tracker used when no Redis is configured.
type MemoryTracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	lastSeen map[uuid.UUID]time.Time
	now      func() time.Time
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	return &MemoryTracker{
		ttl:      ttl,
		lastSeen: make(map[uuid.UUID]time.Time),
		now:      time.Now,
	}
}

func (t *MemoryTracker) Heartbeat(_ context.Context, userID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[userID] = t.now()
	return nil
}

func (t *MemoryTracker) Online(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	online := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		seen, ok := t.lastSeen[id]
		if ok && now.Sub(seen) >= t.ttl {
			delete(t.lastSeen, id)
			ok = false
		}
		online[id] = ok
	}
	return online, nil
}
