// Package auth выпускает и проверяет bearer-токены портала (JWT, HS256).
// Сервер проверяет подпись; клиент читает из токена только идентичность текущего пользователя.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/academyportal/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const issuer = "academy-portal"

// Claims — полезная нагрузка токена: id, имя и роль пользователя.
type Claims struct {
	UserID int64      `json:"uid"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// User возвращает пользователя сессии из claims.
func (c *Claims) User() model.SessionUser {
	return model.SessionUser{ID: c.UserID, Name: c.Name, Role: c.Role}
}

// Issue подписывает токен для пользователя.
func Issue(secret string, u model.SessionUser, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("auth: empty secret")
	}
	if u.ID <= 0 {
		return "", errors.New("auth: user id is required")
	}
	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		Name:   u.Name,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия токена.
func Verify(secret, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}
	return claims, nil
}

// Decode читает claims без проверки подписи. Используется только клиентом,
// чтобы узнать, кто залогинен; сервер всегда вызывает Verify.
func Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
