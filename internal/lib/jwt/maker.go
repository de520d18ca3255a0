// Package jwt реализует генерацию и парсинг JWT токенов сессии.
//
// Токен несёт только идентификатор пользователя (sub) и тип токена.
// Роль в токен не кладётся: она определяется по пользователю при каждом запросе,
// поэтому смена роли вступает в силу сразу.
package jwt

import (
	"time"
)

// TokenType различает access и refresh токены, подписанные разными ключами.
type TokenType string

const (
	// Access короткоживущий токен для запросов к API.
	Access TokenType = "access"
	// Refresh долгоживущий токен, хранящийся у пользователя в БД.
	Refresh TokenType = "refresh"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(userID int64, typ TokenType) (string, error)
	ParseToken(tokenStr string, typ TokenType) (*CustomClaims, error)
}

// MakerImpl реализует Maker на основе двух секретов и двух TTL.
type MakerImpl struct {
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTMaker создаёт MakerImpl. Секреты access и refresh должны различаться,
// чтобы refresh токен нельзя было предъявить как access.
func NewJWTMaker(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// TTL возвращает время жизни токена указанного типа.
func (j *MakerImpl) TTL(typ TokenType) time.Duration {
	if typ == Refresh {
		return j.refreshTTL
	}
	return j.accessTTL
}

func (j *MakerImpl) secret(typ TokenType) []byte {
	if typ == Refresh {
		return []byte(j.refreshSecret)
	}
	return []byte(j.accessSecret)
}
