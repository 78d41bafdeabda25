package kafka

import (
	"Homestead/internal/api/config"
	log "log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// MessageSentEvent 投递给下游（推送、风控、数据仓库）的消息发送事件
type MessageSentEvent struct {
	ConversationID uint64 `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       uint64 `json:"sender_id"`
	ReceiverID     uint64 `json:"receiver_id"`
	Seq            uint64 `json:"seq"`
	Preview        string `json:"preview"`
	SentAt         int64  `json:"sent_at"`
}

// ChatEventProducer 聊天事件出站通道。投递是尽力而为的，
// 失败只记录日志，绝不阻塞消息发送主流程。
type ChatEventProducer interface {
	MessageSent(event *MessageSentEvent)
	Close() error
}

type chatEventProducerImpl struct {
	producer sarama.AsyncProducer
	topic    string
}

func NewChatEventProducer(cfg *config.Config) (ChatEventProducer, error) {
	producer, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, newProducerConfig(cfg.Kafka))
	if err != nil {
		return nil, err
	}

	p := &chatEventProducerImpl{
		producer: producer,
		topic:    cfg.KafkaChatProducer.Topic,
	}
	go p.drainErrors()
	return p, nil
}

func (s *chatEventProducerImpl) drainErrors() {
	for err := range s.producer.Errors() {
		log.Error("聊天事件投递失败", "topic", err.Msg.Topic, "err", err.Err)
	}
}

// MessageSent 以会话 ID 为分区键投递，保证同会话事件顺序
func (s *chatEventProducerImpl) MessageSent(event *MessageSentEvent) {
	if event.SentAt == 0 {
		event.SentAt = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("聊天事件序列化失败", "message_id", event.MessageID, "err", err)
		return
	}

	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(event.ConversationID, 10)),
		Value: sarama.ByteEncoder(payload),
	}
}

func (s *chatEventProducerImpl) Close() error {
	return s.producer.Close()
}
