package models

import "github.com/google/uuid"

// --- DTOs for messaging operations ---

// SendTarget addresses a new message. ConversationID may be omitted for the first 1:1 message;
// group sends must carry it.
type SendTarget struct {
	ConversationID *string    `json:"conversationId,omitempty"`
	ReceiverID     *uuid.UUID `json:"receiverId,omitempty"`
}

type SendTextRequest struct {
	SendTarget
	TextPayload
}

type SendImageRequest struct {
	SendTarget
	ImagePayload
}

type SendVideoRequest struct {
	SendTarget
	VideoPayload
}

type SendFileRequest struct {
	SendTarget
	FilePayload
}

type SendAudioRequest struct {
	SendTarget
	AudioPayload
}

type SendLocationRequest struct {
	SendTarget
	LocationPayload
}

type SendContactRequest struct {
	SendTarget
	ContactPayload
}

type SendStickerRequest struct {
	SendTarget
	StickerPayload
}

type SendSystemRequest struct {
	SendTarget
	SystemPayload
}

type RecallRequest struct {
	MessageID uuid.UUID `json:"messageId" binding:"required"`
}

type DeleteMessageRequest struct {
	MessageID uuid.UUID `json:"messageId" binding:"required"`
}

type BatchDeleteMessagesRequest struct {
	MessageIDs []uuid.UUID `json:"messageIds" binding:"required,min=1,max=500"`
}

type DeleteConversationRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	DeleteForAll   bool   `json:"deleteForAll"`
}

type BatchDeleteConversationsRequest struct {
	ConversationIDs []string `json:"conversationIds" binding:"required,min=1,max=100"`
	DeleteForAll    bool     `json:"deleteForAll"`
}

type ForwardRequest struct {
	MessageID   uuid.UUID   `json:"messageId" binding:"required"`
	ReceiverIDs []uuid.UUID `json:"receiverIds" binding:"required,min=1,max=50"`
}

type BlockRequest struct {
	TargetID uuid.UUID `json:"targetId" binding:"required"`
}

// CreateGroupRequest defines the payload for creating a group conversation.
type CreateGroupRequest struct {
	Name      string      `json:"name" binding:"required,min=1,max=100"`
	Avatar    *string     `json:"avatar,omitempty" binding:"omitempty,max=2048"`
	MemberIDs []uuid.UUID `json:"memberIds" binding:"required,min=1,max=500"`
}
