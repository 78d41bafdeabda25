package handler

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/pkg/response"
	"Homestead/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	convService service.ConversationService
	msgService  service.MessageService
}

func NewChatHandler(convService service.ConversationService, msgService service.MessageService) *ChatHandler {
	return &ChatHandler{
		convService: convService,
		msgService:  msgService,
	}
}

// CreateConversation 买家对房源发起会话，幂等
func (s *ChatHandler) CreateConversation(c *gin.Context) {
	var req dto.CreateConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	// 从 Context 中获取中间件解析出的当前用户 ID
	buyerID := c.GetUint64("user_id")

	res, err := s.convService.GetOrCreate(c, buyerID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetConversationList 获取会话列表
func (s *ChatHandler) GetConversationList(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.convService.ListFor(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// DeleteConversation 单侧删除会话
func (s *ChatHandler) DeleteConversation(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.convService.SoftDelete(c, userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SendMessage 发送消息接口
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	senderID := c.GetUint64("user_id")

	res, err := s.msgService.Send(c, senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// EditMessage 编辑消息接口
func (s *ChatHandler) EditMessage(c *gin.Context) {
	var req dto.EditMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	res, err := s.msgService.Edit(c, userID, messageID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// DeleteMessage 软删除消息接口
func (s *ChatHandler) DeleteMessage(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	if err := s.msgService.Delete(c, userID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetChatHistory 获取历史消息，游标分页
func (s *ChatHandler) GetChatHistory(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Query("conversation_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	cursor := c.Query("cursor")
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	userID := c.GetUint64("user_id")

	res, err := s.msgService.History(c, userID, convID, cursor, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkAsRead 标记已读接口
func (s *ChatHandler) MarkAsRead(c *gin.Context) {
	var req dto.MarkReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err := s.msgService.MarkRead(c, userID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetUnreadCount 获取会话未读数
func (s *ChatHandler) GetUnreadCount(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Query("conversation_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	count, err := s.msgService.UnreadCount(c, userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"unread_count": count})
}

// NotifyTyping 输入中信号接口
func (s *ChatHandler) NotifyTyping(c *gin.Context) {
	var req dto.TypingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err := s.msgService.NotifyTyping(c, userID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
