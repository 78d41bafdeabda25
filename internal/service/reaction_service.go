package service

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/model"
	"Homestead/internal/pkg/consts"
	mongorepo "Homestead/internal/pkg/mongo"
	"Homestead/internal/pkg/realtime"
	"Homestead/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/mongo"
)

type ReactionService interface {
	Toggle(ctx context.Context, userID uint64, req *dto.ToggleReactionReq) (*dto.ReactionAggregateDTO, error)
	Aggregate(ctx context.Context, userID uint64, messageID string) (*dto.ReactionAggregateDTO, error)
}

type reactionServiceImpl struct {
	reactionRepo repository.ReactionRepo
	msgRepo      mongorepo.MessageRepo
	convSvc      ConversationService
	router       *realtime.Router
}

func NewReactionService(
	reactionRepo repository.ReactionRepo,
	msgRepo mongorepo.MessageRepo,
	convSvc ConversationService,
	router *realtime.Router,
) ReactionService {
	return &reactionServiceImpl{
		reactionRepo: reactionRepo,
		msgRepo:      msgRepo,
		convSvc:      convSvc,
		router:       router,
	}
}

// Toggle 表情回应开关。先尝试插入，撞联合主键说明已存在，改为删除。
// 并发的同一 (消息, 用户, 表情) 操作由唯一约束收敛，无需显式加锁。
func (s *reactionServiceImpl) Toggle(ctx context.Context, userID uint64, req *dto.ToggleReactionReq) (*dto.ReactionAggregateDTO, error) {
	if !validEmoji(req.Emoji) {
		return nil, ErrEmojiInvalid
	}

	_, convID, err := s.getReactableMessage(ctx, userID, req.MessageID)
	if err != nil {
		return nil, err
	}

	reaction := &model.Reaction{
		MessageID:      req.MessageID,
		UserID:         userID,
		Emoji:          req.Emoji,
		ConversationID: convID,
	}
	if err = s.reactionRepo.Create(ctx, reaction); err != nil {
		if !isDuplicateKey(err) {
			log.Error("添加表情回应失败", "message_id", req.MessageID, "error", err)
			return nil, UnExpectedError
		}
		if err = s.reactionRepo.Delete(ctx, req.MessageID, userID, req.Emoji); err != nil {
			log.Error("取消表情回应失败", "message_id", req.MessageID, "error", err)
			return nil, UnExpectedError
		}
	}

	// 聚合在行落库后重读，发布顺序不与提交顺序绑定：并发切换下
	// 订阅方可能短暂持有中间态的聚合，由后续事件或主动拉取覆盖
	aggregate, err := s.buildAggregate(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	s.publishChanged(ctx, convID, aggregate)
	return aggregate, nil
}

// Aggregate 返回消息的表情聚合视图，访问方必须是会话成员
func (s *reactionServiceImpl) Aggregate(ctx context.Context, userID uint64, messageID string) (*dto.ReactionAggregateDTO, error) {
	if _, _, err := s.getReactableMessage(ctx, userID, messageID); err != nil {
		return nil, err
	}
	return s.buildAggregate(ctx, messageID)
}

func (s *reactionServiceImpl) getReactableMessage(ctx context.Context, userID uint64, messageID string) (*mongorepo.Message, uint64, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, 0, ErrMessageNotFound
		}
		log.Error("查询消息失败", "message_id", messageID, "error", err)
		return nil, 0, UnExpectedError
	}
	if msg.IsDeleted {
		return nil, 0, ErrMessageDeleted
	}
	if _, err = s.convSvc.GetForParticipant(ctx, userID, msg.ConversationID); err != nil {
		return nil, 0, err
	}
	return msg, msg.ConversationID, nil
}

func (s *reactionServiceImpl) buildAggregate(ctx context.Context, messageID string) (*dto.ReactionAggregateDTO, error) {
	reactions, err := s.reactionRepo.ListByMessage(ctx, messageID)
	if err != nil {
		log.Error("查询表情回应失败", "message_id", messageID, "error", err)
		return nil, UnExpectedError
	}

	aggregate := &dto.ReactionAggregateDTO{
		MessageID: messageID,
		Counts:    make(map[string]int64),
		Users:     make(map[string][]uint64),
	}
	for _, r := range reactions {
		aggregate.Counts[r.Emoji]++
		aggregate.Users[r.Emoji] = append(aggregate.Users[r.Emoji], r.UserID)
	}
	return aggregate, nil
}

func (s *reactionServiceImpl) publishChanged(ctx context.Context, convID uint64, aggregate *dto.ReactionAggregateDTO) {
	event, err := realtime.NewEvent(realtime.EventReactionChanged, convID, aggregate)
	if err != nil {
		log.Error("构造表情事件失败", "message_id", aggregate.MessageID, "error", err)
		return
	}
	if err = s.router.Publish(ctx, realtime.ConversationScope(convID), event); err != nil {
		log.Error("推送表情事件失败", "message_id", aggregate.MessageID, "error", err)
	}
}

// validEmoji 表情必须是合法 UTF-8 且不超过长度上限
func validEmoji(emoji string) bool {
	return emoji != "" && len(emoji) <= consts.EmojiMaxBytes && utf8.ValidString(emoji)
}
