package job

import (
	"Homestead/internal/pkg/listing"
	"Homestead/internal/pkg/logger"
	"Homestead/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// 每轮校准最多处理的会话数
const refreshBatchLimit = 500

// ListingRefreshJob 周期校准活跃会话的房源快照。
// Kafka 事件是快照更新的主通道，本任务兜底消费丢失或乱序的场景。
type ListingRefreshJob struct {
	convRepo      repository.ConversationRepo
	listingClient listing.Client
}

func NewListingRefreshJob(convRepo repository.ConversationRepo, listingClient listing.Client) *ListingRefreshJob {
	return &ListingRefreshJob{
		convRepo:      convRepo,
		listingClient: listingClient,
	}
}

func (s *ListingRefreshJob) Run() {
	traceID := "job-listing-refresh-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	since := time.Now().Add(-24 * time.Hour)
	convs, err := s.convRepo.ListActiveSince(ctx, since, refreshBatchLimit)
	if err != nil {
		log.ErrorContext(ctx, "list active conversations error", "err", err)
		return
	}

	log.InfoContext(ctx, "ListingRefreshJob processing", "conversation_count", len(convs))

	// 同一房源可能挂着多条会话，按房源去重后逐个刷新
	seen := make(map[uint64]struct{})
	for _, conv := range convs {
		if _, ok := seen[conv.ListingID]; ok {
			continue
		}
		seen[conv.ListingID] = struct{}{}

		info, err := s.listingClient.GetListing(ctx, conv.ListingID)
		if err != nil {
			log.WarnContext(ctx, "fetch listing error", "listing_id", conv.ListingID, "err", err)
			continue
		}
		if info.Title == conv.ListingTitle && info.ImageURL == conv.ListingImageURL {
			continue
		}

		if err = s.convRepo.UpdateListingSnapshot(ctx, conv.ListingID, info.Title, info.ImageURL); err != nil {
			log.ErrorContext(ctx, "refresh listing snapshot error", "listing_id", conv.ListingID, "err", err)
		}
	}
}
