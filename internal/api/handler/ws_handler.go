package handler

import (
	"Homestead/internal/pkg/realtime"
	"Homestead/internal/pkg/response"
	"Homestead/internal/pkg/security"
	"Homestead/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	convService     service.ConversationService
	presenceService service.PresenceService
	router          *realtime.Router
}

func NewWsHandler(convService service.ConversationService, presenceService service.PresenceService, router *realtime.Router) *WsHandler {
	return &WsHandler{
		convService:     convService,
		presenceService: presenceService,
		router:          router,
	}
}

func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权，浏览器 WS 无法携带 Header，使用查询参数传递
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ParseJwt(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()

	// 订阅用户参与的所有会话频道、本人用户频道及全局在线状态频道
	list, err := s.convService.ListFor(ctx, userID)
	if err != nil {
		log.Error("获取会话列表失败", "user_id", userID, "err", err)
		return
	}

	var subs []*realtime.Subscription
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	out := make(chan realtime.Event, 256)
	stopChan := make(chan struct{})
	dropChan := make(chan struct{}, 1)

	forward := func(sub *realtime.Subscription) {
		for event := range sub.Events() {
			select {
			case out <- event:
			case <-stopChan:
				return
			}
		}
		// 订阅被淘汰时断开整条连接，客户端重连后全量拉取
		if sub.Dropped() {
			select {
			case dropChan <- struct{}{}:
			default:
			}
		}
	}

	// 已订阅的会话集合，连接期间新建的会话经用户频道通知后补订
	joined := make(map[uint64]struct{}, len(list))

	scopes := make([]string, 0, len(list)+2)
	for _, conv := range list {
		joined[conv.ID] = struct{}{}
		scopes = append(scopes, realtime.ConversationScope(conv.ID))
	}
	scopes = append(scopes, realtime.UserScope(userID), realtime.PresenceScope())

	for _, scope := range scopes {
		sub, err := s.router.Subscribe(ctx, scope)
		if err != nil {
			log.Error("WS 订阅失败", "user_id", userID, "scope", scope, "err", err)
			return
		}
		subs = append(subs, sub)
		go forward(sub)
	}

	log.Info("用户 WS 连接已建立", "user_id", userID, "scopes", len(scopes))

	// 连接建立视为一次心跳
	if err = s.presenceService.Heartbeat(ctx, userID); err != nil {
		log.Warn("WS 上线心跳失败", "user_id", userID, "err", err)
	}

	// 读循环：客户端任何入站帧都当作心跳，连接断开时退出
	go func() {
		defer close(stopChan)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			if err := s.presenceService.Heartbeat(ctx, userID); err != nil {
				log.Warn("WS 心跳刷新失败", "user_id", userID, "err", err)
			}
		}
	}()

	// 写循环：串行推送事件至客户端
	for {
		select {
		case event := <-out:
			// 连接期间新建的会话：补订其频道后再转发通知
			if event.Type == realtime.EventConversationCreated && event.ConversationID != 0 {
				if _, ok := joined[event.ConversationID]; !ok {
					sub, err := s.router.Subscribe(ctx, realtime.ConversationScope(event.ConversationID))
					if err != nil {
						log.Error("WS 补订会话失败", "user_id", userID, "conversation_id", event.ConversationID, "err", err)
						return
					}
					joined[event.ConversationID] = struct{}{}
					subs = append(subs, sub)
					go forward(sub)
				}
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Error("WS 事件序列化失败", "user_id", userID, "err", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err = conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Error("WS 推送失败", "user_id", userID, "err", err)
				return
			}
		case <-dropChan:
			log.Warn("WS 断开", "user_id", userID, "err", realtime.ErrSubscriptionDropped)
			return
		case <-stopChan:
			log.Info("用户 WS 连接已断开", "user_id", userID)
			return
		}
	}
}
