package chat

import (
	"net/http"

	"pawpost-backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sendHandler binds a kind-specific send request and hands its target and payload to the service.
// Payload rules are checked by the service, so binding only has to decode.
func sendHandler[T any](h *RestHandler, split func(*T) (models.SendTarget, models.Payload)) gin.HandlerFunc {
	return func(c *gin.Context) {
		senderID, ok := currentUser(c)
		if !ok {
			return
		}
		var req T
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		target, payload := split(&req)
		msg, err := h.svc.Send(c.Request.Context(), senderID, target, payload)
		if err != nil {
			h.respondError(c, "Send", err,
				zap.String("userId", senderID.String()),
				zap.String("kind", string(payload.Kind())))
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// SendSystem emits a platform message. The route is guarded by the system key, not a user token.
// POST /messages/send-system
func (h *RestHandler) SendSystem(c *gin.Context) {
	var req models.SendSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.svc.SendSystem(c.Request.Context(), req.SendTarget, req.SystemPayload)
	if err != nil {
		h.respondError(c, "SendSystem", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *RestHandler) sendRoutes() map[string]gin.HandlerFunc {
	return map[string]gin.HandlerFunc{
		"/send": sendHandler(h, func(r *models.SendTextRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.TextPayload
		}),
		"/send-image": sendHandler(h, func(r *models.SendImageRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.ImagePayload
		}),
		"/send-video": sendHandler(h, func(r *models.SendVideoRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.VideoPayload
		}),
		"/send-file": sendHandler(h, func(r *models.SendFileRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.FilePayload
		}),
		"/send-audio": sendHandler(h, func(r *models.SendAudioRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.AudioPayload
		}),
		"/send-location": sendHandler(h, func(r *models.SendLocationRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.LocationPayload
		}),
		"/send-contact": sendHandler(h, func(r *models.SendContactRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.ContactPayload
		}),
		"/send-sticker": sendHandler(h, func(r *models.SendStickerRequest) (models.SendTarget, models.Payload) {
			return r.SendTarget, r.StickerPayload
		}),
	}
}
