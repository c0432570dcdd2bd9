package chat

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"pawpost-backend/internal/messaging"
	"pawpost-backend/internal/middleware"
	"pawpost-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RestHandler handles REST API requests related to messaging.
type RestHandler struct {
	svc    *messaging.Service
	logger *zap.Logger
}

// NewRestHandler creates a new RestHandler.
func NewRestHandler(svc *messaging.Service, logger *zap.Logger) *RestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestHandler{svc: svc, logger: logger.Named("chat")}
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, messaging.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, messaging.ErrBlocked), errors.Is(err, messaging.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, messaging.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, messaging.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusServiceUnavailable
}

// respondError writes the service error as {"error", "code"}. Storage failures are logged and
// their details withheld from the client.
func (h *RestHandler) respondError(c *gin.Context, op string, err error, fields ...zap.Field) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", append(fields, zap.Error(err))...)
		c.JSON(status, gin.H{"error": "Service temporarily unavailable", "code": messaging.Code(err)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": messaging.Code(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error(), "code": "validation_error"})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session", "code": "unauthorized"})
		return uuid.Nil, false
	}
	return userID, true
}

// ownParam parses a :userId path parameter that must name the caller.
func ownParam(c *gin.Context, callerID uuid.UUID) bool {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format", "code": "validation_error"})
		return false
	}
	if userID != callerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only access your own data", "code": "forbidden"})
		return false
	}
	return true
}

// GetConversations lists the caller's conversations, most recent first.
// GET /conversations/:userId
func (h *RestHandler) GetConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok || !ownParam(c, userID) {
		return
	}

	convs, err := h.svc.GetConversations(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "GetConversations", err, zap.String("userId", userID.String()))
		return
	}
	if convs == nil {
		convs = make([]*models.Conversation, 0)
	}
	c.JSON(http.StatusOK, convs)
}

// GetConversation returns the caller's view of one conversation.
// GET /conversations/:userId/:conversationId
func (h *RestHandler) GetConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok || !ownParam(c, userID) {
		return
	}
	conversationID := c.Param("conversationId")

	conv, err := h.svc.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.respondError(c, "GetConversation", err,
			zap.String("userId", userID.String()),
			zap.String("conversationId", conversationID))
		return
	}
	c.JSON(http.StatusOK, conv)
}

// GetMessages returns one page of a conversation's chat log.
// GET /messages/:conversationId?limit=<int>&offset=<int>
func (h *RestHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID := c.Param("conversationId")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(messaging.DefaultPageSize)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer", "code": "validation_error"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be an integer", "code": "validation_error"})
		return
	}

	page, err := h.svc.GetMessages(c.Request.Context(), userID, conversationID, limit, offset)
	if err != nil {
		h.respondError(c, "GetMessages", err,
			zap.String("userId", userID.String()),
			zap.String("conversationId", conversationID))
		return
	}
	if page.Messages == nil {
		page.Messages = make([]*models.Message, 0)
	}
	c.JSON(http.StatusOK, page)
}

// MarkAsRead clears the caller's unread count for a conversation.
// POST /messages/:conversationId/read
func (h *RestHandler) MarkAsRead(c *gin.Context) {
	h.readState(c, "MarkAsRead", h.svc.MarkAsRead)
}

// MarkAsUnread flags the latest received message as unread.
// POST /messages/:conversationId/unread
func (h *RestHandler) MarkAsUnread(c *gin.Context) {
	h.readState(c, "MarkAsUnread", h.svc.MarkAsUnread)
}

func (h *RestHandler) readState(c *gin.Context, op string, apply func(ctx context.Context, userID uuid.UUID, conversationID string) (int, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID := c.Param("conversationId")

	unread, err := apply(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.respondError(c, op, err,
			zap.String("userId", userID.String()),
			zap.String("conversationId", conversationID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": conversationID, "unreadCount": unread})
}

// AcknowledgeStatus records a delivery receipt.
// POST /messages/status
func (h *RestHandler) AcknowledgeStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.MessageAcknowledgementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.svc.AcknowledgeStatus(c.Request.Context(), userID, req.MessageID, req.Status)
	if err != nil {
		h.respondError(c, "AcknowledgeStatus", err,
			zap.String("userId", userID.String()),
			zap.String("messageId", req.MessageID.String()))
		return
	}
	c.JSON(http.StatusOK, msg)
}

// Recall tombstones one of the caller's messages.
// POST /messages/recall
func (h *RestHandler) Recall(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.RecallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.svc.Recall(c.Request.Context(), userID, req.MessageID)
	if err != nil {
		h.respondError(c, "Recall", err,
			zap.String("userId", userID.String()),
			zap.String("messageId", req.MessageID.String()))
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage hides a message from the caller.
// DELETE /messages
func (h *RestHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.DeleteMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.DeleteMessage(c.Request.Context(), userID, req.MessageID); err != nil {
		h.respondError(c, "DeleteMessage", err,
			zap.String("userId", userID.String()),
			zap.String("messageId", req.MessageID.String()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted", "deleted": 1})
}

// DeleteMessages hides several messages from the caller, all or none.
// DELETE /messages/batch
func (h *RestHandler) DeleteMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.BatchDeleteMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.DeleteMessages(c.Request.Context(), userID, req.MessageIDs); err != nil {
		h.respondError(c, "DeleteMessages", err,
			zap.String("userId", userID.String()),
			zap.Int("messages", len(req.MessageIDs)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Messages deleted", "deleted": len(req.MessageIDs)})
}

// DeleteConversation clears a conversation for the caller or, with deleteForAll, for everyone.
// DELETE /messages/conversation
func (h *RestHandler) DeleteConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.DeleteConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.DeleteConversation(c.Request.Context(), userID, req.ConversationID, req.DeleteForAll); err != nil {
		h.respondError(c, "DeleteConversation", err,
			zap.String("userId", userID.String()),
			zap.String("conversationId", req.ConversationID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted", "conversationId": req.ConversationID, "deleteForAll": req.DeleteForAll})
}

// DeleteConversations applies DeleteConversation to several conversations at once.
// DELETE /messages/conversations/batch
func (h *RestHandler) DeleteConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.BatchDeleteConversationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.DeleteConversations(c.Request.Context(), userID, req.ConversationIDs, req.DeleteForAll); err != nil {
		h.respondError(c, "DeleteConversations", err,
			zap.String("userId", userID.String()),
			zap.Strings("conversationIds", req.ConversationIDs))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversations deleted", "deleted": len(req.ConversationIDs), "deleteForAll": req.DeleteForAll})
}

// Forward copies a message to each receiver.
// POST /messages/forward
func (h *RestHandler) Forward(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	forwarded, err := h.svc.Forward(c.Request.Context(), userID, req.MessageID, req.ReceiverIDs)
	if err != nil {
		h.respondError(c, "Forward", err,
			zap.String("userId", userID.String()),
			zap.String("messageId", req.MessageID.String()))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"messages": forwarded})
}

// GetStatistics summarises the caller's inbox.
// GET /messages/statistics/:userId
func (h *RestHandler) GetStatistics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok || !ownParam(c, userID) {
		return
	}

	stats, err := h.svc.Statistics(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "GetStatistics", err, zap.String("userId", userID.String()))
		return
	}
	if stats.RecentUnreadConversations == nil {
		stats.RecentUnreadConversations = make([]*models.Conversation, 0)
	}
	c.JSON(http.StatusOK, stats)
}

// CreateGroup opens a group conversation owned by the caller.
// POST /groups
func (h *RestHandler) CreateGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.svc.CreateGroup(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, "CreateGroup", err, zap.String("userId", userID.String()))
		return
	}
	c.JSON(http.StatusCreated, group)
}
