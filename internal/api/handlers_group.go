package api

import "Homestead/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	ChatHandler     *handler.ChatHandler
	ReactionHandler *handler.ReactionHandler
	PresenceHandler *handler.PresenceHandler
	WsHandler       *handler.WsHandler
}
