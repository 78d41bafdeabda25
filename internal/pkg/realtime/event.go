package realtime

import (
	"time"

	json "github.com/goccy/go-json"
)

// 事件类型常量，Payload 的具体结构由各自的服务层定义
const (
	EventConversationCreated = "CONVERSATION_CREATED"

	EventMessageInserted = "MESSAGE_INSERTED"
	EventMessageUpdated  = "MESSAGE_UPDATED"
	EventReactionChanged = "REACTION_CHANGED"
	EventTypingSignal    = "TYPING_SIGNAL"
	EventPresenceChanged = "PRESENCE_CHANGED"
)

// Event 统一的实时事件信封，通过 Broker 在进程间传递
type Event struct {
	Type           string          `json:"type"`
	ConversationID uint64          `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	EmittedAt      time.Time       `json:"emitted_at"`
}

// NewEvent 序列化载荷并封装事件信封
func NewEvent(eventType string, conversationID uint64, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        raw,
		EmittedAt:      time.Now(),
	}, nil
}

// DecodePayload 将事件载荷解码到目标结构
func (e Event) DecodePayload(target interface{}) error {
	return json.Unmarshal(e.Payload, target)
}
