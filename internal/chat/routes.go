package chat

import (
	"pawpost-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the messaging API. protected must already run AuthMiddleware; public is
// the bare API group the system-key route hangs off.
func (h *RestHandler) RegisterRoutes(public, protected *gin.RouterGroup, systemKey string) {
	public.POST("/messages/send-system", middleware.SystemKeyMiddleware(systemKey), h.SendSystem)

	protected.GET("/conversations/:userId", h.GetConversations)
	protected.GET("/conversations/:userId/:conversationId", h.GetConversation)
	protected.POST("/groups", h.CreateGroup)

	messages := protected.Group("/messages")
	{
		for path, handler := range h.sendRoutes() {
			messages.POST(path, handler)
		}
		messages.GET("/:conversationId", h.GetMessages)
		messages.POST("/:conversationId/read", h.MarkAsRead)
		messages.POST("/:conversationId/unread", h.MarkAsUnread)
		messages.POST("/status", h.AcknowledgeStatus)
		messages.POST("/recall", h.Recall)
		messages.POST("/forward", h.Forward)

		messages.DELETE("", h.DeleteMessage)
		messages.DELETE("/batch", h.DeleteMessages)
		messages.DELETE("/conversation", h.DeleteConversation)
		messages.DELETE("/conversations/batch", h.DeleteConversations)

		messages.POST("/block", h.Block)
		messages.POST("/unblock", h.Unblock)
		messages.GET("/blocked/check", h.CheckBlocked)
		messages.GET("/blocked/:userId", h.ListBlocked)
		messages.GET("/statistics/:userId", h.GetStatistics)
	}
}
