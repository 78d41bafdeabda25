package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message MongoDB 消息明细模型。
// 消息一经提交即不可变，仅 content/edited_at（发送者编辑）
// 与 is_deleted/deleted_at（发送者软删除）、read_at（对端已读）可变。
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID uint64             `bson:"conversation_id" json:"conversationId"` // 关联 MySQL 的会话 ID
	SenderID       uint64             `bson:"sender_id" json:"senderId"`
	Content        string             `bson:"content" json:"content"`
	Attachment     *Attachment        `bson:"attachment,omitempty" json:"attachment"`
	ReplyToID      string             `bson:"reply_to_id,omitempty" json:"replyToId"` // 被回复消息的 ObjectID Hex
	Seq            uint64             `bson:"seq" json:"seq"`                         // 会话内唯一绝对序号 (来自 MySQL)
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	EditedAt       *time.Time         `bson:"edited_at,omitempty" json:"editedAt"`
	IsDeleted      bool               `bson:"is_deleted" json:"isDeleted"`
	DeletedAt      *time.Time         `bson:"deleted_at,omitempty" json:"deletedAt"`
	ReadAt         *time.Time         `bson:"read_at,omitempty" json:"readAt"`
}

// Attachment 附件，由外部存储服务上传完成后传入 URL
type Attachment struct {
	URL      string `bson:"url" json:"url"`
	MimeType string `bson:"mime_type" json:"mime_type"`
	Name     string `bson:"name,omitempty" json:"name"`
	Size     int64  `bson:"size,omitempty" json:"size"`
}
