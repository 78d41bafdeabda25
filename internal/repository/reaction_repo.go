package repository

import (
	"Homestead/internal/model"
	"context"

	"gorm.io/gorm"
)

type ReactionRepo interface {
	Create(ctx context.Context, reaction *model.Reaction) error
	Delete(ctx context.Context, messageID string, userID uint64, emoji string) error
	ListByMessage(ctx context.Context, messageID string) ([]*model.Reaction, error)
}

type reactionRepoImpl struct {
	db *gorm.DB
}

func NewReactionRepo(db *gorm.DB) ReactionRepo {
	return &reactionRepoImpl{db: db}
}

func (s *reactionRepoImpl) Create(ctx context.Context, reaction *model.Reaction) error {
	return s.db.WithContext(ctx).Create(reaction).Error
}

func (s *reactionRepoImpl) Delete(ctx context.Context, messageID string, userID uint64, emoji string) error {
	return s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&model.Reaction{}).Error
}

// ListByMessage 按创建时间正序返回消息的全部贴贴记录
func (s *reactionRepoImpl) ListByMessage(ctx context.Context, messageID string) ([]*model.Reaction, error) {
	var reactions []*model.Reaction
	err := s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	return reactions, err
}
