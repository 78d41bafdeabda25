package api

import (
	"Homestead/internal/api/middleware"
	"Homestead/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		chatGroup := apiGroup.Group("/chat")
		{
			// WS 在查询参数中自行鉴权
			chatGroup.GET("/ws", group.WsHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/conversations", group.ChatHandler.CreateConversation)
				authGroup.GET("/conversations", group.ChatHandler.GetConversationList)
				authGroup.DELETE("/conversations/:conversation_id", group.ChatHandler.DeleteConversation)

				authGroup.POST("/messages", group.ChatHandler.SendMessage)
				authGroup.PUT("/messages/:message_id", group.ChatHandler.EditMessage)
				authGroup.DELETE("/messages/:message_id", group.ChatHandler.DeleteMessage)
				authGroup.GET("/history", group.ChatHandler.GetChatHistory)
				authGroup.POST("/read", group.ChatHandler.MarkAsRead)
				authGroup.GET("/unread", group.ChatHandler.GetUnreadCount)

				authGroup.POST("/reactions/toggle", group.ReactionHandler.ToggleReaction)
				authGroup.GET("/messages/:message_id/reactions", group.ReactionHandler.GetReactions)

				authGroup.POST("/typing", group.ChatHandler.NotifyTyping)
			}
		}

		presenceGroup := apiGroup.Group("/presence")
		presenceGroup.Use(middleware.AuthMiddleware())
		{
			presenceGroup.POST("/heartbeat", group.PresenceHandler.Heartbeat)
			presenceGroup.POST("/offline", group.PresenceHandler.Offline)
			presenceGroup.POST("/status", group.PresenceHandler.Status)
		}
	}

	return r
}
