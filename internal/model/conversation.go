package model

import "time"

// Conversation 会话主表。每个 (listing_id, buyer_id) 组合
// 全局唯一一条会话，依赖唯一索引保证并发创建收敛。
type Conversation struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID       uint64    `gorm:"uniqueIndex:idx_listing_buyer;not null" json:"listingId"`
	BuyerID         uint64    `gorm:"uniqueIndex:idx_listing_buyer;index;not null" json:"buyerId"`
	SellerID        uint64    `gorm:"index;not null" json:"sellerId"`
	ListingTitle    string    `gorm:"type:varchar(255)" json:"listingTitle"`    // 房源快照，来自房源服务
	ListingImageURL string    `gorm:"type:varchar(512)" json:"listingImageUrl"` // 房源快照，来自房源服务
	MaxMsgSeq       uint64    `gorm:"not null;default:0" json:"maxMsgSeq"`      // 会话内消息序列号
	LastMsgPreview  string    `gorm:"type:varchar(255)" json:"lastMsgPreview"`
	LastSenderID    uint64    `gorm:"not null;default:0" json:"lastSenderId"`
	LastMessageAt   time.Time `gorm:"index" json:"lastMessageAt"`
	BuyerHidden     int8      `gorm:"not null;default:0" json:"buyerHidden"`  // 买家侧软删除标记
	SellerHidden    int8      `gorm:"not null;default:0" json:"sellerHidden"` // 卖家侧软删除标记
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }

// IsParticipant 判断用户是否为会话成员
func (c *Conversation) IsParticipant(userID uint64) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// PeerOf 返回会话中对手方的用户 ID
func (c *Conversation) PeerOf(userID uint64) uint64 {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// HiddenFor 判断会话是否已被该用户软删除
func (c *Conversation) HiddenFor(userID uint64) bool {
	if c.BuyerID == userID {
		return c.BuyerHidden == 1
	}
	if c.SellerID == userID {
		return c.SellerHidden == 1
	}
	return false
}
