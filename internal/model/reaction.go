package model

import "time"

// Reaction 消息表情回应。联合主键 (message_id, user_id, emoji)，
// 行存在即表示"已回应"，不存在即"未回应"。
type Reaction struct {
	MessageID      string    `gorm:"primaryKey;type:varchar(32)" json:"messageId"` // Mongo ObjectID Hex
	UserID         uint64    `gorm:"primaryKey" json:"userId"`
	Emoji          string    `gorm:"primaryKey;type:varchar(32)" json:"emoji"`
	ConversationID uint64    `gorm:"index;not null" json:"conversationId"` // 事件推送所属会话
	CreatedAt      time.Time `json:"createdAt"`
}

func (Reaction) TableName() string { return "reactions" }
