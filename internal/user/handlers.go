package user

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pawpost-backend/internal/middleware"
	"pawpost-backend/internal/models"
	"pawpost-backend/internal/presence"
	"pawpost-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// UserHandler exposes the user directory and presence heartbeats.
type UserHandler struct {
	userStore store.UserStore
	presence  presence.Tracker
	logger    *zap.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userStore store.UserStore, tracker presence.Tracker, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{userStore: userStore, presence: tracker, logger: logger.Named("user")}
}

// GetUserByID returns the public profile for a user.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format", "code": "validation_error"})
		return
	}

	user, err := h.userStore.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found", "code": "not_found"})
			return
		}
		h.logger.Error("failed to get user", zap.String("userId", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user information"})
		return
	}

	c.JSON(http.StatusOK, user.ToPublicUser())
}

// SearchUsers matches users by name or email. A full email address is looked up exactly.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	searchQuery := strings.TrimSpace(c.Query("search"))
	if searchQuery == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query parameter is required", "code": "validation_error"})
		return
	}

	limit := defaultSearchLimit
	if size := c.Query("limit"); size != "" {
		if parsed, err := strconv.Atoi(size); err == nil && parsed > 0 && parsed <= maxSearchLimit {
			limit = parsed
		}
	}

	var users []*models.User
	var err error

	if strings.Contains(searchQuery, "@") && !strings.Contains(searchQuery, "%") {
		var user *models.User
		user, err = h.userStore.GetUserByEmail(c.Request.Context(), strings.ToLower(searchQuery))
		if err == nil {
			users = []*models.User{user}
		} else if !errors.Is(err, store.ErrUserNotFound) {
			h.logger.Error("email lookup failed", zap.String("query", searchQuery), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error during user search"})
			return
		}
	}

	if users == nil {
		users, err = h.userStore.SearchUsers(c.Request.Context(), searchQuery, limit)
		if err != nil {
			h.logger.Error("user search failed", zap.String("query", searchQuery), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error during user search"})
			return
		}
	}

	publicUsers := make([]*models.PublicUser, 0, len(users))
	for _, user := range users {
		publicUsers = append(publicUsers, user.ToPublicUser())
	}

	c.JSON(http.StatusOK, publicUsers)
}

// Heartbeat marks the caller online for one presence TTL.
// POST /presence/heartbeat
func (h *UserHandler) Heartbeat(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session", "code": "unauthorized"})
		return
	}

	if err := h.presence.Heartbeat(c.Request.Context(), userID); err != nil {
		h.logger.Warn("presence heartbeat failed", zap.String("userId", userID.String()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Presence is temporarily unavailable", "code": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": true})
}
