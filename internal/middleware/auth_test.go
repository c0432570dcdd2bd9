package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pawpost-backend/internal/config"
	"pawpost-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prev := config.Cfg
	config.Cfg = &config.AppConfig{JWTSecret: "middleware-secret", TokenMaxAge: time.Hour}
	t.Cleanup(func() { config.Cfg = prev })

	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.POST("/system", SystemKeyMiddleware("s3cret"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newAuthRouter(t)
	userID := uuid.New()
	token, err := utils.GenerateJWT(userID)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"basic scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK && w.Body.String() != userID.String() {
				t.Fatalf("user id = %s, want %s", w.Body.String(), userID)
			}
		})
	}
}

func TestSystemKeyMiddleware(t *testing.T) {
	r := newAuthRouter(t)

	for key, want := range map[string]int{
		"s3cret": http.StatusNoContent,
		"wrong":  http.StatusUnauthorized,
		"":       http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodPost, "/system", nil)
		if key != "" {
			req.Header.Set(SystemKeyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("key %q: status = %d, want %d", key, w.Code, want)
		}
	}

	empty := gin.New()
	empty.POST("/system", SystemKeyMiddleware(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodPost, "/system", nil)
	req.Header.Set(SystemKeyHeader, "")
	w := httptest.NewRecorder()
	empty.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("empty configured key admitted a caller: %d", w.Code)
	}
}
