package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/presence"
	"pawpost-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type failingTracker struct{}

func (failingTracker) Heartbeat(context.Context, uuid.UUID) error {
	return errors.New("redis down")
}

func (failingTracker) Online(context.Context, []uuid.UUID) (map[uuid.UUID]bool, error) {
	return nil, errors.New("redis down")
}

func newUserRouter(t *testing.T, tracker presence.Tracker) (*gin.Engine, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	now := time.Now().UTC()
	u := &models.User{ID: uuid.New(), Name: "Luna Shelter", Email: "luna@example.com", HashedPassword: "x", CreatedAt: now, UpdatedAt: now}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	h := NewUserHandler(st, tracker, nil)
	r := gin.New()
	// Stand-in for AuthMiddleware.
	r.Use(func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader("X-Test-User")); err == nil {
			c.Set("userID", id)
		}
		c.Next()
	})
	r.GET("/users/:id", h.GetUserByID)
	r.GET("/users", h.SearchUsers)
	r.POST("/presence/heartbeat", h.Heartbeat)
	return r, u
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetUserByID(t *testing.T) {
	r, u := newUserRouter(t, presence.NewMemoryTracker(time.Minute))

	w := get(r, "/users/"+u.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var public models.PublicUser
	if err := json.Unmarshal(w.Body.Bytes(), &public); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if public.ID != u.ID || public.Name != u.Name {
		t.Fatalf("user = %+v", public)
	}

	if w := get(r, "/users/"+uuid.NewString()); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user status = %d", w.Code)
	}
	if w := get(r, "/users/nope"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}
}

func TestSearchUsers(t *testing.T) {
	r, u := newUserRouter(t, presence.NewMemoryTracker(time.Minute))

	for _, query := range []string{"luna", "luna@example.com", "SHELTER"} {
		w := get(r, "/users?search="+query)
		if w.Code != http.StatusOK {
			t.Fatalf("search %q status = %d", query, w.Code)
		}
		var users []models.PublicUser
		if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(users) != 1 || users[0].ID != u.ID {
			t.Fatalf("search %q = %+v", query, users)
		}
	}

	if w := get(r, "/users?search=nobody"); w.Body.String() != "[]" {
		t.Fatalf("empty search body = %s", w.Body.String())
	}
	if w := get(r, "/users"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing query status = %d", w.Code)
	}
}

func TestHeartbeat(t *testing.T) {
	tracker := presence.NewMemoryTracker(time.Minute)
	r, u := newUserRouter(t, tracker)

	req := httptest.NewRequest(http.MethodPost, "/presence/heartbeat", nil)
	req.Header.Set("X-Test-User", u.ID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	online, _ := tracker.Online(context.Background(), []uuid.UUID{u.ID})
	if !online[u.ID] {
		t.Fatal("user is not online after a heartbeat")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/presence/heartbeat", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous heartbeat status = %d", w.Code)
	}

	failing, u2 := newUserRouter(t, failingTracker{})
	req = httptest.NewRequest(http.MethodPost, "/presence/heartbeat", nil)
	req.Header.Set("X-Test-User", u2.ID.String())
	w = httptest.NewRecorder()
	failing.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing tracker status = %d", w.Code)
	}
}
