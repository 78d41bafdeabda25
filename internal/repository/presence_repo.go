package repository

import (
	"Homestead/internal/pkg/consts"
	"Homestead/internal/pkg/redis"
	"context"
	"strconv"
	"time"
)

// PresenceRepo 存储用户最近一次心跳的时间戳（毫秒），在线状态由读取方惰性推导。
// 记录本身保留远长于在线判定窗口，便于展示"最后活跃时间"。
type PresenceRepo interface {
	Touch(ctx context.Context, userID uint64, at time.Time) error
	Clear(ctx context.Context, userID uint64) error
	LastHeartbeat(ctx context.Context, userID uint64) (time.Time, bool, error)
	LastHeartbeats(ctx context.Context, userIDs []uint64) (map[uint64]time.Time, error)
}

type presenceRepoImpl struct{}

func NewPresenceRepo() PresenceRepo {
	return &presenceRepoImpl{}
}

func presenceKey(userID uint64) string {
	return consts.PresenceHeartbeatKey + strconv.FormatUint(userID, 10)
}

func (s *presenceRepoImpl) Touch(ctx context.Context, userID uint64, at time.Time) error {
	return redis.SetWithExpiration(ctx, presenceKey(userID), at.UnixMilli(), consts.PresenceRecordRetention)
}

func (s *presenceRepoImpl) Clear(ctx context.Context, userID uint64) error {
	return redis.DeleteKey(ctx, presenceKey(userID))
}

func (s *presenceRepoImpl) LastHeartbeat(ctx context.Context, userID uint64) (time.Time, bool, error) {
	value, err := redis.GetValue(ctx, presenceKey(userID))
	if err != nil || value == "" {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

// LastHeartbeats 批量获取心跳时间，无记录的用户不出现在结果中
func (s *presenceRepoImpl) LastHeartbeats(ctx context.Context, userIDs []uint64) (map[uint64]time.Time, error) {
	if len(userIDs) == 0 {
		return map[uint64]time.Time{}, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presenceKey(id)
	}
	values, err := redis.MGetValues(ctx, keys...)
	if err != nil {
		return nil, err
	}
	result := make(map[uint64]time.Time, len(userIDs))
	for i, value := range values {
		if value == "" {
			continue
		}
		ms, parseErr := strconv.ParseInt(value, 10, 64)
		if parseErr != nil {
			continue
		}
		result[userIDs[i]] = time.UnixMilli(ms)
	}
	return result, nil
}
