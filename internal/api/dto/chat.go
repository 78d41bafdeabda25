package dto

import "time"

type CreateConversationReq struct {
	ListingID uint64 `json:"listing_id" binding:"required"`
	SellerID  uint64 `json:"seller_id" binding:"required"`
}

type ConversationDTO struct {
	ID              uint64    `json:"id"`
	ListingID       uint64    `json:"listing_id"`
	ListingTitle    string    `json:"listing_title"`
	ListingImageURL string    `json:"listing_image_url"`
	BuyerID         uint64    `json:"buyer_id"`
	SellerID        uint64    `json:"seller_id"`
	PeerID          uint64    `json:"peer_id"`
	PeerOnline      bool      `json:"peer_online"`
	LastMsgPreview  string    `json:"last_msg_preview"`
	LastSenderID    uint64    `json:"last_sender_id"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnreadCount     int64     `json:"unread_count"`
}

type AttachmentDTO struct {
	URL      string `json:"url" binding:"omitempty,url"`
	MimeType string `json:"mime_type"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
}

type SendMessageReq struct {
	ConversationID uint64         `json:"conversation_id" binding:"required"`
	Content        string         `json:"content"`
	Attachment     *AttachmentDTO `json:"attachment"`
	ReplyToID      string         `json:"reply_to_id"`
}

type MessageDTO struct {
	ID             string         `json:"id"`
	ConversationID uint64         `json:"conversation_id"`
	SenderID       uint64         `json:"sender_id"`
	Content        string         `json:"content"`
	Attachment     *AttachmentDTO `json:"attachment,omitempty"`
	ReplyToID      string         `json:"reply_to_id,omitempty"`
	Seq            uint64         `json:"seq"`
	CreatedAt      time.Time      `json:"created_at"`
	EditedAt       *time.Time     `json:"edited_at,omitempty"`
	IsDeleted      bool           `json:"is_deleted"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
}

type EditMessageReq struct {
	Content string `json:"content" binding:"required"`
}

type HistoryDTO struct {
	Messages   []*MessageDTO `json:"messages"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

type MarkReadReq struct {
	ConversationID uint64 `json:"conversation_id" binding:"required"`
	UpToSeq        uint64 `json:"up_to_seq"`
}

type ToggleReactionReq struct {
	MessageID string `json:"message_id" binding:"required"`
	Emoji     string `json:"emoji" binding:"required"`
}

// ReactionAggregateDTO 消息的贴贴聚合视图
type ReactionAggregateDTO struct {
	MessageID string              `json:"message_id"`
	Counts    map[string]int64    `json:"counts"`
	Users     map[string][]uint64 `json:"users"`
}

type TypingReq struct {
	ConversationID uint64 `json:"conversation_id" binding:"required"`
	IsTyping       bool   `json:"is_typing"`
}

type TypingDTO struct {
	ConversationID uint64 `json:"conversation_id"`
	UserID         uint64 `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
}
