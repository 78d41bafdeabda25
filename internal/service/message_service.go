package service

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/pkg/consts"
	"Homestead/internal/pkg/kafka"
	mongorepo "Homestead/internal/pkg/mongo"
	"Homestead/internal/pkg/realtime"
	"Homestead/internal/pkg/util"
	"Homestead/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/mongo"
)

// 消息体写入 Mongo 的超时，超时视为存储繁忙
const messageSaveTimeout = 2 * time.Second

type MessageService interface {
	Send(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	Edit(ctx context.Context, userID uint64, messageID string, content string) (*dto.MessageDTO, error)
	Delete(ctx context.Context, userID uint64, messageID string) error
	History(ctx context.Context, userID, convID uint64, cursor string, pageSize int) (*dto.HistoryDTO, error)
	MarkRead(ctx context.Context, userID uint64, req *dto.MarkReadReq) error
	UnreadCount(ctx context.Context, userID, convID uint64) (int64, error)
	NotifyTyping(ctx context.Context, userID uint64, req *dto.TypingReq) error
}

type messageServiceImpl struct {
	convRepo repository.ConversationRepo
	msgRepo  mongorepo.MessageRepo
	convSvc  ConversationService
	router   *realtime.Router
	producer kafka.ChatEventProducer
}

func NewMessageService(
	convRepo repository.ConversationRepo,
	msgRepo mongorepo.MessageRepo,
	convSvc ConversationService,
	router *realtime.Router,
	producer kafka.ChatEventProducer,
) MessageService {
	return &messageServiceImpl{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		convSvc:  convSvc,
		router:   router,
		producer: producer,
	}
}

// Send 发送消息。先在 MySQL 事务内分配会话内严格递增的 Seq 并刷新会话元数据，
// 再将消息体写入 Mongo，最后才推送实时事件。存储失败时绝不对外广播。
func (s *messageServiceImpl) Send(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if req.Content == "" && req.Attachment == nil {
		return nil, ErrContentEmpty
	}

	conv, err := s.convSvc.GetForParticipant(ctx, senderID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	if req.ReplyToID != "" {
		replied, err := s.msgRepo.GetByID(ctx, req.ReplyToID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrReplyInvalid
			}
			log.Error("查询被回复消息失败", "reply_to_id", req.ReplyToID, "error", err)
			return nil, UnExpectedError
		}
		if replied.ConversationID != conv.ID || replied.IsDeleted {
			return nil, ErrReplyInvalid
		}
	}

	preview := buildPreview(req.Content, req.Attachment)
	seq, err := s.convRepo.AllocateSeq(ctx, conv.ID, preview, senderID)
	if err != nil {
		log.Error("分配消息序号失败", "conversation_id", conv.ID, "error", err)
		return nil, UnExpectedError
	}

	msg := &mongorepo.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        req.Content,
		ReplyToID:      req.ReplyToID,
		Seq:            seq,
		CreatedAt:      time.Now(),
	}
	if req.Attachment != nil {
		msg.Attachment = &mongorepo.Attachment{
			URL:      req.Attachment.URL,
			MimeType: req.Attachment.MimeType,
			Name:     req.Attachment.Name,
			Size:     req.Attachment.Size,
		}
	}

	saveCtx, cancel := context.WithTimeout(ctx, messageSaveTimeout)
	defer cancel()
	if err = s.msgRepo.SaveMessage(saveCtx, msg); err != nil {
		// Seq 已消耗但消息未落库，会话内留下一个空洞，不影响顺序正确性
		log.Error("消息写入失败", "conversation_id", conv.ID, "seq", seq, "error", err)
		return nil, ErrStorageBusy
	}

	item := toMessageDTO(msg)
	s.publish(ctx, realtime.EventMessageInserted, conv.ID, item)

	s.producer.MessageSent(&kafka.MessageSentEvent{
		ConversationID: conv.ID,
		MessageID:      item.ID,
		SenderID:       senderID,
		ReceiverID:     conv.PeerOf(senderID),
		Seq:            seq,
		Preview:        preview,
	})

	return item, nil
}

// Edit 编辑自己发送的消息，软删除的消息不可编辑
func (s *messageServiceImpl) Edit(ctx context.Context, userID uint64, messageID string, content string) (*dto.MessageDTO, error) {
	if content == "" {
		return nil, ErrContentEmpty
	}

	msg, err := s.getOwnMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, ErrMessageDeleted
	}

	now := time.Now()
	matched, err := s.msgRepo.UpdateContent(ctx, messageID, userID, content, now)
	if err != nil {
		log.Error("编辑消息失败", "message_id", messageID, "error", err)
		return nil, UnExpectedError
	}
	if !matched {
		// 条件更新落空，消息在检查后被并发删除
		return nil, ErrMessageDeleted
	}

	msg.Content = content
	msg.EditedAt = &now
	item := toMessageDTO(msg)
	s.publish(ctx, realtime.EventMessageUpdated, msg.ConversationID, item)
	return item, nil
}

// Delete 软删除自己发送的消息，消息占位保留，内容对外不可见
func (s *messageServiceImpl) Delete(ctx context.Context, userID uint64, messageID string) error {
	msg, err := s.getOwnMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		// 幂等：重复删除直接成功
		return nil
	}

	now := time.Now()
	matched, err := s.msgRepo.SoftDelete(ctx, messageID, userID, now)
	if err != nil {
		log.Error("删除消息失败", "message_id", messageID, "error", err)
		return UnExpectedError
	}
	if !matched {
		return nil
	}

	msg.IsDeleted = true
	msg.DeletedAt = &now
	s.publish(ctx, realtime.EventMessageUpdated, msg.ConversationID, toMessageDTO(msg))
	return nil
}

// History 按 Seq 倒序游标分页，返回结果内部按 Seq 正序排列
func (s *messageServiceImpl) History(ctx context.Context, userID, convID uint64, cursor string, pageSize int) (*dto.HistoryDTO, error) {
	if _, err := s.convSvc.GetForParticipant(ctx, userID, convID); err != nil {
		return nil, err
	}

	beforeSeq, err := util.DecodeCursor(cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	if pageSize <= 0 {
		pageSize = consts.DefaultHistoryPageSize
	}
	if pageSize > consts.MaxHistoryPageSize {
		pageSize = consts.MaxHistoryPageSize
	}

	// 多取一条判断是否还有更早的消息
	messages, err := s.msgRepo.GetHistory(ctx, convID, beforeSeq, pageSize+1)
	if err != nil {
		log.Error("查询历史消息失败", "conversation_id", convID, "error", err)
		return nil, UnExpectedError
	}

	hasMore := len(messages) > pageSize
	if hasMore {
		messages = messages[:pageSize]
	}

	result := &dto.HistoryDTO{HasMore: hasMore}
	if hasMore && len(messages) > 0 {
		result.NextCursor = util.EncodeCursor(messages[len(messages)-1].Seq)
	}

	// 仓储按 Seq 倒序返回，翻转为正序便于客户端渲染
	result.Messages = make([]*dto.MessageDTO, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		result.Messages = append(result.Messages, toMessageDTO(messages[i]))
	}
	return result, nil
}

// MarkRead 标记已读并向会话推送已读回执
func (s *messageServiceImpl) MarkRead(ctx context.Context, userID uint64, req *dto.MarkReadReq) error {
	if _, err := s.convSvc.GetForParticipant(ctx, userID, req.ConversationID); err != nil {
		return err
	}

	affected, err := s.msgRepo.MarkRead(ctx, req.ConversationID, userID, req.UpToSeq, time.Now())
	if err != nil {
		log.Error("标记已读失败", "conversation_id", req.ConversationID, "error", err)
		return UnExpectedError
	}

	for _, msg := range affected {
		s.publish(ctx, realtime.EventMessageUpdated, req.ConversationID, toMessageDTO(msg))
	}
	return nil
}

func (s *messageServiceImpl) UnreadCount(ctx context.Context, userID, convID uint64) (int64, error) {
	if _, err := s.convSvc.GetForParticipant(ctx, userID, convID); err != nil {
		return 0, err
	}
	count, err := s.msgRepo.CountUnread(ctx, convID, userID)
	if err != nil {
		log.Error("统计未读数失败", "conversation_id", convID, "error", err)
		return 0, UnExpectedError
	}
	return count, nil
}

// NotifyTyping 输入中信号为纯瞬时事件，不落库，客户端按过期窗口自行消隐
func (s *messageServiceImpl) NotifyTyping(ctx context.Context, userID uint64, req *dto.TypingReq) error {
	if _, err := s.convSvc.GetForParticipant(ctx, userID, req.ConversationID); err != nil {
		return err
	}
	s.publish(ctx, realtime.EventTypingSignal, req.ConversationID, &dto.TypingDTO{
		ConversationID: req.ConversationID,
		UserID:         userID,
		IsTyping:       req.IsTyping,
	})
	return nil
}

func (s *messageServiceImpl) getOwnMessage(ctx context.Context, userID uint64, messageID string) (*mongorepo.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		log.Error("查询消息失败", "message_id", messageID, "error", err)
		return nil, UnExpectedError
	}
	if msg.SenderID != userID {
		return nil, ErrNotSender
	}
	return msg, nil
}

func (s *messageServiceImpl) publish(ctx context.Context, eventType string, convID uint64, payload interface{}) {
	event, err := realtime.NewEvent(eventType, convID, payload)
	if err != nil {
		log.Error("构造实时事件失败", "type", eventType, "conversation_id", convID, "error", err)
		return
	}
	if err = s.router.Publish(ctx, realtime.ConversationScope(convID), event); err != nil {
		log.Error("推送实时事件失败", "type", eventType, "conversation_id", convID, "error", err)
	}
}

// buildPreview 生成会话列表预览文本，超长按字节截断，回退到完整的 rune 边界
func buildPreview(content string, attachment *dto.AttachmentDTO) string {
	if content == "" && attachment != nil {
		return "[附件] " + attachment.Name
	}
	if len(content) <= consts.MessagePreviewMax {
		return content
	}
	cut := consts.MessagePreviewMax
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// toMessageDTO 软删除的消息对外只保留占位，内容清空
func toMessageDTO(msg *mongorepo.Message) *dto.MessageDTO {
	item := &dto.MessageDTO{
		ID:             msg.ID.Hex(),
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		ReplyToID:      msg.ReplyToID,
		Seq:            msg.Seq,
		CreatedAt:      msg.CreatedAt,
		EditedAt:       msg.EditedAt,
		IsDeleted:      msg.IsDeleted,
		ReadAt:         msg.ReadAt,
	}
	if msg.IsDeleted {
		item.Content = ""
		item.ReplyToID = ""
		return item
	}
	if msg.Attachment != nil {
		item.Attachment = &dto.AttachmentDTO{
			URL:      msg.Attachment.URL,
			MimeType: msg.Attachment.MimeType,
			Name:     msg.Attachment.Name,
			Size:     msg.Attachment.Size,
		}
	}
	return item
}
