package handler

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/pkg/response"
	"Homestead/internal/service"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	presenceService service.PresenceService
}

func NewPresenceHandler(presenceService service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

// Heartbeat 客户端心跳接口，无 WS 连接的客户端靠它维持在线
func (s *PresenceHandler) Heartbeat(c *gin.Context) {
	userID := c.GetUint64("user_id")
	if err := s.presenceService.Heartbeat(c, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Offline 主动下线接口
func (s *PresenceHandler) Offline(c *gin.Context) {
	userID := c.GetUint64("user_id")
	if err := s.presenceService.ExplicitOffline(c, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Status 批量查询在线状态
func (s *PresenceHandler) Status(c *gin.Context) {
	var req dto.PresenceStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.presenceService.Status(c, req.UserIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
