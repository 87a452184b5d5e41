package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService JWT 令牌服务
type JWTService struct {
	secretKey []byte
	issuer    string
	expiry    time.Duration
}

// NewJWTService 创建 JWT 服务
func NewJWTService(secretKey, issuer string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		expiry:    2 * time.Hour,
	}
}

// TokenClaims JWT 声明
type TokenClaims struct {
	UserID    string `json:"uid"`
	UserName  string `json:"name"`
	UserEmail string `json:"email"`
	SuperUser bool   `json:"super_user"`
	jwt.RegisteredClaims
}

// GenerateToken 签发令牌
func (s *JWTService) GenerateToken(userID, userName, userEmail string, superUser bool) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID:    userID,
		UserName:  userName,
		UserEmail: userEmail,
		SuperUser: superUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, nil
}

// ParseToken 校验并解析令牌
func (s *JWTService) ParseToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名算法: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("解析令牌失败: %w", err)
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("令牌无效")
	}
	return claims, nil
}
