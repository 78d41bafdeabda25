package consts

import "time"

// 在线状态判定窗口。客户端心跳间隔 30s，TTL 取两倍，
// 所有读取方必须使用同一组常量计算在线状态。
const (
	HeartbeatInterval = 30 * time.Second
	PresenceTTL       = 2 * HeartbeatInterval
	// PresenceRecordRetention 心跳时间戳在 Redis 中的保留时长
	PresenceRecordRetention = 7 * 24 * time.Hour
	// TypingExpiry 输入中信号的客户端过期窗口，服务端不发送停止信号
	TypingExpiry = 3 * time.Second
)

const (
	// MessagePreviewMax 会话列表预览的最大字节数
	MessagePreviewMax = 255
	// EmojiMaxBytes 单个表情的最大字节数
	EmojiMaxBytes = 32
	// DefaultHistoryPageSize 历史消息默认分页大小
	DefaultHistoryPageSize = 20
	// MaxHistoryPageSize 历史消息最大分页大小
	MaxHistoryPageSize = 100
)
