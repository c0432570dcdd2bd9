package chat

import (
	"net/http"

	"pawpost-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Block stops the target from sending the caller new direct messages.
// POST /messages/block
func (h *RestHandler) Block(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.Block(c.Request.Context(), userID, req.TargetID); err != nil {
		h.respondError(c, "Block", err,
			zap.String("userId", userID.String()),
			zap.String("targetId", req.TargetID.String()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User blocked", "targetId": req.TargetID})
}

// Unblock lifts a block.
// POST /messages/unblock
func (h *RestHandler) Unblock(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.Unblock(c.Request.Context(), userID, req.TargetID); err != nil {
		h.respondError(c, "Unblock", err,
			zap.String("userId", userID.String()),
			zap.String("targetId", req.TargetID.String()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unblocked", "targetId": req.TargetID})
}

// ListBlocked returns everyone the caller has blocked.
// GET /messages/blocked/:userId
func (h *RestHandler) ListBlocked(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok || !ownParam(c, userID) {
		return
	}

	relations, err := h.svc.ListBlocked(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "ListBlocked", err, zap.String("userId", userID.String()))
		return
	}
	if relations == nil {
		relations = make([]models.BlockRelation, 0)
	}
	c.JSON(http.StatusOK, relations)
}

// CheckBlocked reports whether userId has blocked targetId. The caller must be one of the two.
// GET /messages/blocked/check?userId=<uuid>&targetId=<uuid>
func (h *RestHandler) CheckBlocked(c *gin.Context) {
	callerID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter must be a valid ID", "code": "validation_error"})
		return
	}
	targetID, err := uuid.Parse(c.Query("targetId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetId query parameter must be a valid ID", "code": "validation_error"})
		return
	}
	if callerID != userID && callerID != targetID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only check blocks involving yourself", "code": "forbidden"})
		return
	}

	blocked, err := h.svc.IsBlocked(c.Request.Context(), userID, targetID)
	if err != nil {
		h.respondError(c, "CheckBlocked", err,
			zap.String("userId", userID.String()),
			zap.String("targetId", targetID.String()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "targetId": targetID, "isBlocked": blocked})
}
