package handler

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/pkg/response"
	"Homestead/internal/service"

	"github.com/gin-gonic/gin"
)

type ReactionHandler struct {
	reactionService service.ReactionService
}

func NewReactionHandler(reactionService service.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService}
}

// ToggleReaction 表情回应开关接口
func (s *ReactionHandler) ToggleReaction(c *gin.Context) {
	var req dto.ToggleReactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	res, err := s.reactionService.Toggle(c, userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetReactions 获取消息的表情聚合视图
func (s *ReactionHandler) GetReactions(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("message_id")

	res, err := s.reactionService.Aggregate(c, userID, messageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
