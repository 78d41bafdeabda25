package service

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrConversationNotFound = errors.New("会话不存在")
	ErrMessageNotFound      = errors.New("消息不存在")
	ErrListingInvalid       = errors.New("房源无效")
	ErrSelfConversation     = errors.New("不能与自己发起会话")
	ErrNotParticipant       = errors.New("不是会话参与者")
	ErrNotSender            = errors.New("只能操作自己发送的消息")
	ErrMessageDeleted       = errors.New("消息已被删除")
	ErrContentEmpty         = errors.New("消息内容不能为空")
	ErrReplyInvalid         = errors.New("被回复的消息无效")
	ErrEmojiInvalid         = errors.New("表情符号无效")
	ErrStorageBusy          = errors.New("消息存储繁忙，请稍后重试")
	UnauthorizedError       = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrConversationNotFound: NotFound,
	ErrMessageNotFound:      NotFound,
	ErrListingInvalid:       BadRequest,
	ErrSelfConversation:     BadRequest,
	ErrNotParticipant:       Forbidden,
	ErrNotSender:            Forbidden,
	ErrMessageDeleted:       BadRequest,
	ErrContentEmpty:         BadRequest,
	ErrReplyInvalid:         BadRequest,
	ErrEmojiInvalid:         BadRequest,
	ErrStorageBusy:          ServiceUnavailable,
	UnauthorizedError:       Unauthorized,
	UnExpectedError:         InternalServerError,
}

// isDuplicateKey 判断是否为 MySQL 唯一键冲突
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
