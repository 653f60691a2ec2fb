package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrNoExpiry = errors.New("token has no expiry")

// Claims - поля SimpleJWT, которые нужны клиенту
type Claims struct {
	jwt.RegisteredClaims
	UserID    flexID `json:"user_id"`
	TokenType string `json:"token_type"`
}

// flexID принимает user_id и строкой, и числом
type flexID string

func (n *flexID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*n = flexID(s)
	return nil
}

// Inspect разбирает токен без проверки подписи: ключ есть только у бэкенда
func Inspect(raw string) (Claims, error) {
	var claims Claims
	_, _, err := jwt.NewParser().ParseUnverified(raw, &claims)
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

func (c Claims) User() string {
	return string(c.UserID)
}

func (c Claims) Expiry() (time.Time, error) {
	if c.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return c.ExpiresAt.Time, nil
}

func (c Claims) Expired(now time.Time) bool {
	exp, err := c.Expiry()
	if err != nil {
		return false
	}
	return !now.Before(exp)
}
