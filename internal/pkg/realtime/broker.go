package realtime

import (
	"context"
	log "log/slog"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	rdb "Homestead/internal/pkg/redis"
)

// Broker 是跨进程的事件传输层。
// 生产环境使用 Redis Pub/Sub 实现，测试使用进程内实现。
type Broker interface {
	Publish(ctx context.Context, scope string, event Event) error
	Subscribe(ctx context.Context, scope string) (BrokerSubscription, error)
}

// BrokerSubscription 是某个 scope 下的一路订阅
type BrokerSubscription interface {
	Events() <-chan Event
	Close() error
}

type redisBroker struct{}

// NewRedisBroker 创建基于 Redis Pub/Sub 的 Broker
func NewRedisBroker() Broker {
	return &redisBroker{}
}

func (b *redisBroker) Publish(ctx context.Context, scope string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, scope, payload)
}

func (b *redisBroker) Subscribe(ctx context.Context, scope string) (BrokerSubscription, error) {
	pubsub := rdb.Subscribe(ctx, scope)
	// 等待订阅确认，避免丢失紧随其后发布的事件
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisBrokerSub{
		pubsub: pubsub,
		events: make(chan Event, 64),
	}
	go sub.loop(scope)
	return sub, nil
}

type redisBrokerSub struct {
	pubsub *redis.PubSub
	events chan Event
}

func (s *redisBrokerSub) loop(scope string) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Error("realtime: 事件反序列化失败", "scope", scope, "error", err)
			continue
		}
		s.events <- event
	}
}

func (s *redisBrokerSub) Events() <-chan Event {
	return s.events
}

func (s *redisBrokerSub) Close() error {
	return s.pubsub.Close()
}

// memoryBroker 进程内 Broker，供单进程部署和测试使用
type memoryBroker struct {
	mu   sync.RWMutex
	subs map[string][]*memoryBrokerSub
}

// NewMemoryBroker 创建进程内 Broker
func NewMemoryBroker() Broker {
	return &memoryBroker{subs: make(map[string][]*memoryBrokerSub)}
}

func (b *memoryBroker) Publish(_ context.Context, scope string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[scope] {
		sub.events <- event
	}
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, scope string) (BrokerSubscription, error) {
	sub := &memoryBrokerSub{
		broker: b,
		scope:  scope,
		events: make(chan Event, 64),
	}
	b.mu.Lock()
	b.subs[scope] = append(b.subs[scope], sub)
	b.mu.Unlock()
	return sub, nil
}

type memoryBrokerSub struct {
	broker *memoryBroker
	scope  string
	events chan Event
	once   sync.Once
}

func (s *memoryBrokerSub) Events() <-chan Event {
	return s.events
}

func (s *memoryBrokerSub) Close() error {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		subs := b.subs[s.scope]
		for i, sub := range subs {
			if sub == s {
				b.subs[s.scope] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(s.events)
	})
	return nil
}
