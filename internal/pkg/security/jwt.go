package security

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// 与账户服务共享的签名密钥，本服务只做校验不做签发
var jwtSecret = []byte("homestead-account-shared-secret")

// ParseJwt 解析并校验令牌，返回其中的用户声明
func ParseJwt(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("非预期的签名算法: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "解析令牌失败")
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的令牌")
	}
	return claims, nil
}
