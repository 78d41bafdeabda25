package dto

type PresenceStatusReq struct {
	UserIDs []uint64 `json:"user_ids" binding:"required,min=1,max=100"`
}

type PresenceDTO struct {
	UserID          uint64 `json:"user_id"`
	Online          bool   `json:"online"`
	LastHeartbeatAt int64  `json:"last_heartbeat_at,omitempty"`
}
