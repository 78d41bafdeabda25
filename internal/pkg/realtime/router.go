package realtime

import (
	"context"
	log "log/slog"
	"strconv"
	"sync"

	"Homestead/internal/pkg/consts"
	"github.com/pkg/errors"
)

// ErrSubscriptionDropped 表示订阅方消费过慢，已被路由器强制淘汰
var ErrSubscriptionDropped = errors.New("realtime: subscription dropped due to slow consumer")

// 单个订阅的事件缓冲大小，写满即判定为慢消费者
const subscriptionBuffer = 64

// ConversationScope 返回单个会话的事件 scope
func ConversationScope(conversationID uint64) string {
	return consts.ChatConversationKey + strconv.FormatUint(conversationID, 10)
}

// PresenceScope 返回全局在线状态事件的 scope
func PresenceScope() string {
	return consts.ChatPresenceKey
}

// UserScope 返回单个用户的事件 scope，连接期间新建的会话经此通知
func UserScope(userID uint64) string {
	return consts.ChatUserKey + strconv.FormatUint(userID, 10)
}

// Subscription 是本进程内某个 scope 的一路订阅。
// 消费过慢会被丢弃：Events 通道关闭且 Dropped 返回 true。
type Subscription struct {
	router  *Router
	scope   string
	id      uint64
	events  chan Event
	dropped bool
	once    sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Dropped 订阅是否因消费过慢被淘汰，仅在 Events 关闭后有意义
func (s *Subscription) Dropped() bool {
	s.router.mu.Lock()
	defer s.router.mu.Unlock()
	return s.dropped
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.router.unsubscribe(s.scope, s.id)
	})
}

// scopeState 维护一个 scope 在本进程内的全部订阅，
// 由唯一的 pump 协程串行分发，保证事件到达顺序与发布顺序一致。
type scopeState struct {
	brokerSub BrokerSubscription
	subs      map[uint64]*Subscription
	nextID    uint64
}

// Router 将 Broker 上的事件按 scope 分发给本进程内的订阅者。
// 每个 scope 仅对 Broker 订阅一次，多路订阅者共享同一条上游通道。
type Router struct {
	broker Broker

	mu     sync.Mutex
	scopes map[string]*scopeState
}

func NewRouter(broker Broker) *Router {
	return &Router{
		broker: broker,
		scopes: make(map[string]*scopeState),
	}
}

// Publish 向指定 scope 发布事件
func (r *Router) Publish(ctx context.Context, scope string, event Event) error {
	return r.broker.Publish(ctx, scope, event)
}

// Subscribe 订阅指定 scope，首个订阅者触发对 Broker 的上游订阅
func (r *Router) Subscribe(ctx context.Context, scope string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.scopes[scope]
	if !ok {
		brokerSub, err := r.broker.Subscribe(ctx, scope)
		if err != nil {
			return nil, errors.Wrapf(err, "subscribe scope %s", scope)
		}
		state = &scopeState{
			brokerSub: brokerSub,
			subs:      make(map[uint64]*Subscription),
		}
		r.scopes[scope] = state
		go r.pump(scope, brokerSub)
	}

	state.nextID++
	sub := &Subscription{
		router: r,
		scope:  scope,
		id:     state.nextID,
		events: make(chan Event, subscriptionBuffer),
	}
	state.subs[sub.id] = sub
	return sub, nil
}

// pump 是 scope 的唯一分发协程。非阻塞写入各订阅者缓冲，
// 写不进去说明消费方已经落后太多，直接淘汰该订阅。
func (r *Router) pump(scope string, brokerSub BrokerSubscription) {
	for event := range brokerSub.Events() {
		r.mu.Lock()
		state, ok := r.scopes[scope]
		if !ok {
			r.mu.Unlock()
			return
		}
		for id, sub := range state.subs {
			select {
			case sub.events <- event:
			default:
				log.Warn("realtime: 淘汰慢消费订阅", "scope", scope, "subscription_id", id)
				sub.dropped = true
				delete(state.subs, id)
				close(sub.events)
			}
		}
		r.mu.Unlock()
	}

	// 上游通道关闭，终结残余订阅
	r.mu.Lock()
	if state, ok := r.scopes[scope]; ok && state.brokerSub == brokerSub {
		for _, sub := range state.subs {
			close(sub.events)
		}
		delete(r.scopes, scope)
	}
	r.mu.Unlock()
}

func (r *Router) unsubscribe(scope string, id uint64) {
	r.mu.Lock()
	state, ok := r.scopes[scope]
	if !ok {
		r.mu.Unlock()
		return
	}
	sub, ok := state.subs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(state.subs, id)
	close(sub.events)

	// 最后一个订阅者离开时释放对 Broker 的上游订阅
	var brokerSub BrokerSubscription
	if len(state.subs) == 0 {
		brokerSub = state.brokerSub
		delete(r.scopes, scope)
	}
	r.mu.Unlock()

	if brokerSub != nil {
		_ = brokerSub.Close()
	}
}
