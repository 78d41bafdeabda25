package security

import "github.com/golang-jwt/jwt/v5"

// UserClaims 自定义声明结构，与账户服务签发的令牌保持一致
type UserClaims struct {
	UserID uint64 `json:"user_id"`
	jwt.RegisteredClaims
}
