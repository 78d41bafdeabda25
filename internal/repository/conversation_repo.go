package repository

import (
	"Homestead/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetByListingBuyer(ctx context.Context, listingID, buyerID uint64) (*model.Conversation, error)
	ListVisibleFor(ctx context.Context, userID uint64) ([]*model.Conversation, error)
	SetHidden(ctx context.Context, convID uint64, forBuyer bool, hidden bool) error

	AllocateSeq(ctx context.Context, convID uint64, preview string, senderID uint64) (uint64, error)

	UpdateListingSnapshot(ctx context.Context, listingID uint64, title, imageURL string) error
	ListActiveSince(ctx context.Context, since time.Time, limit int) ([]*model.Conversation, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

func (s *conversationRepoImpl) Create(ctx context.Context, conv *model.Conversation) error {
	return s.db.WithContext(ctx).Create(conv).Error
}

// GetByID 根据会话 ID 获取会话
func (s *conversationRepoImpl) GetByID(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByListingBuyer 根据 (房源, 买家) 唯一键获取会话
func (s *conversationRepoImpl) GetByListingBuyer(ctx context.Context, listingID, buyerID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListVisibleFor 获取用户参与且未被其软删除的会话，按最近消息倒序
func (s *conversationRepoImpl) ListVisibleFor(ctx context.Context, userID uint64) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := s.db.WithContext(ctx).
		Where("(buyer_id = ? AND buyer_hidden = 0) OR (seller_id = ? AND seller_hidden = 0)", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	return convs, err
}

// SetHidden 设置单侧软删除标记
func (s *conversationRepoImpl) SetHidden(ctx context.Context, convID uint64, forBuyer bool, hidden bool) error {
	column := "seller_hidden"
	if forBuyer {
		column = "buyer_hidden"
	}

	var value int8
	if hidden {
		value = 1
	}

	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update(column, value).Error
}

// AllocateSeq 核心定序逻辑：利用 MySQL 行锁确保 Seq 绝对递增。
// 同一事务内刷新会话预览并清除双方的软删除标记，
// 使被隐藏的会话在新消息到达时自动浮现。
func (s *conversationRepoImpl) AllocateSeq(ctx context.Context, convID uint64, preview string, senderID uint64) (uint64, error) {
	var maxSeq uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Conversation{}).Where("id = ?", convID).
			Updates(map[string]interface{}{
				"max_msg_seq":      gorm.Expr("max_msg_seq + 1"),
				"last_msg_preview": preview,
				"last_sender_id":   senderID,
				"last_message_at":  time.Now(),
				"buyer_hidden":     0,
				"seller_hidden":    0,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		// 读取并返回自增后的最新 Seq
		return tx.Model(&model.Conversation{}).Select("max_msg_seq").Where("id = ?", convID).Scan(&maxSeq).Error
	})
	return maxSeq, err
}

// UpdateListingSnapshot 房源变更时刷新所有关联会话的快照
func (s *conversationRepoImpl) UpdateListingSnapshot(ctx context.Context, listingID uint64, title, imageURL string) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("listing_id = ?", listingID).
		Updates(map[string]interface{}{
			"listing_title":     title,
			"listing_image_url": imageURL,
		}).Error
}

// ListActiveSince 获取近期有消息的会话，用于快照校准任务
func (s *conversationRepoImpl) ListActiveSince(ctx context.Context, since time.Time, limit int) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := s.db.WithContext(ctx).
		Where("last_message_at >= ?", since).
		Order("last_message_at DESC").
		Limit(limit).
		Find(&convs).Error
	return convs, err
}
