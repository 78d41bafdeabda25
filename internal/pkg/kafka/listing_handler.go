package kafka

import (
	"Homestead/internal/repository"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ListingEvent 房源服务发布的变更事件
type ListingEvent struct {
	Type      string `json:"type"` // UPDATED / REMOVED
	ListingID uint64 `json:"listing_id"`
	SellerID  uint64 `json:"seller_id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
}

// ListingHandler 消费房源变更事件，刷新关联会话的房源快照
type ListingHandler struct {
	convRepo repository.ConversationRepo
}

func NewListingHandler(convRepo repository.ConversationRepo) *ListingHandler {
	return &ListingHandler{convRepo: convRepo}
}

func (s *ListingHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("listing consumer setup")
	return nil
}

func (s *ListingHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("listing consumer cleanup")
	return nil
}

func (s *ListingHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-listing consume claim")
	return pullMessageBatch(session, claim, s.handle)
}

func (s *ListingHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event ListingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("unmarshal listing event error", "err", err)
		// 格式错误的消息无法通过重试恢复，直接跳过
		return nil
	}
	if event.ListingID == 0 {
		return nil
	}

	title := event.Title
	if event.Type == "REMOVED" {
		title = "[房源已下架] " + title
	}

	if err := s.convRepo.UpdateListingSnapshot(ctx, event.ListingID, title, event.ImageURL); err != nil {
		return errors.Wrapf(err, "refresh listing snapshot %d", event.ListingID)
	}
	return nil
}
