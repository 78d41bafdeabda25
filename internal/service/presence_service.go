package service

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/pkg/consts"
	"Homestead/internal/pkg/realtime"
	"Homestead/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// PresenceService 在线状态。只存储最近心跳时间戳，
// "在线"是读取时用统一 TTL 惰性推导的视图，没有独立的状态机。
type PresenceService interface {
	Heartbeat(ctx context.Context, userID uint64) error
	ExplicitOffline(ctx context.Context, userID uint64) error
	Status(ctx context.Context, userIDs []uint64) ([]*dto.PresenceDTO, error)
	IsOnline(ctx context.Context, userID uint64) (bool, error)
}

type presenceServiceImpl struct {
	presenceRepo repository.PresenceRepo
	router       *realtime.Router

	now func() time.Time
}

func NewPresenceService(presenceRepo repository.PresenceRepo, router *realtime.Router) PresenceService {
	return &presenceServiceImpl{
		presenceRepo: presenceRepo,
		router:       router,
		now:          time.Now,
	}
}

// Heartbeat 刷新心跳时间戳。每次写入都推送全局事件，
// 订阅方靠事件里的 lastHeartbeatAt 及时刷新惰性推导的视图。
func (s *presenceServiceImpl) Heartbeat(ctx context.Context, userID uint64) error {
	now := s.now()

	if err := s.presenceRepo.Touch(ctx, userID, now); err != nil {
		log.Error("写入心跳失败", "user_id", userID, "error", err)
		return UnExpectedError
	}

	s.publishChange(ctx, userID, true, now)
	return nil
}

// ExplicitOffline 主动下线立即生效，不等待 TTL 过期
func (s *presenceServiceImpl) ExplicitOffline(ctx context.Context, userID uint64) error {
	if err := s.presenceRepo.Clear(ctx, userID); err != nil {
		log.Error("清除心跳失败", "user_id", userID, "error", err)
		return UnExpectedError
	}
	s.publishChange(ctx, userID, false, s.now())
	return nil
}

// Status 批量查询在线状态
func (s *presenceServiceImpl) Status(ctx context.Context, userIDs []uint64) ([]*dto.PresenceDTO, error) {
	heartbeats, err := s.presenceRepo.LastHeartbeats(ctx, userIDs)
	if err != nil {
		log.Error("批量查询心跳失败", "error", err)
		return nil, UnExpectedError
	}

	now := s.now()
	result := make([]*dto.PresenceDTO, 0, len(userIDs))
	for _, id := range userIDs {
		item := &dto.PresenceDTO{UserID: id}
		if last, ok := heartbeats[id]; ok {
			item.LastHeartbeatAt = last.UnixMilli()
			item.Online = now.Sub(last) <= consts.PresenceTTL
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *presenceServiceImpl) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	last, exists, err := s.presenceRepo.LastHeartbeat(ctx, userID)
	if err != nil {
		return false, UnExpectedError
	}
	return exists && s.now().Sub(last) <= consts.PresenceTTL, nil
}

func (s *presenceServiceImpl) publishChange(ctx context.Context, userID uint64, online bool, at time.Time) {
	payload := &dto.PresenceDTO{
		UserID: userID,
		Online: online,
	}
	if online {
		payload.LastHeartbeatAt = at.UnixMilli()
	}

	event, err := realtime.NewEvent(realtime.EventPresenceChanged, 0, payload)
	if err != nil {
		log.Error("构造在线状态事件失败", "user_id", userID, "error", err)
		return
	}
	if err = s.router.Publish(ctx, realtime.PresenceScope(), event); err != nil {
		log.Error("推送在线状态事件失败", "user_id", userID, "error", err)
	}
}
