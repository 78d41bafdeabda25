package consts

const (
	// ChatConversationKey 会话事件频道前缀，后接会话 ID
	ChatConversationKey = "chat:conversation:"
	// ChatPresenceKey 全局在线状态事件频道
	ChatPresenceKey = "chat:presence"
	// ChatUserKey 单用户事件频道前缀，后接用户 ID，用于投递新会话通知
	ChatUserKey = "chat:user:"
	// PresenceHeartbeatKey 心跳时间戳键前缀，后接用户 ID
	PresenceHeartbeatKey = "presence:heartbeat:"
)
