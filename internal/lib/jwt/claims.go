package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrWrongTokenType возвращается, если тип токена не совпал с ожидаемым.
var ErrWrongTokenType = errors.New("wrong token type")

// CustomClaims описывает данные, хранящиеся в JWT.
type CustomClaims struct {
	Type                 TokenType `json:"typ"`
	jwt.RegisteredClaims           // Subject ID пользователя
}

// UserID возвращает ID пользователя из Subject.
func (c *CustomClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// GenerateToken создает JWT токен указанного типа для пользователя.
// Каждому токену присваивается уникальный ID, поэтому два входа подряд
// дают разные refresh токены.
func (j *MakerImpl) GenerateToken(userID int64, typ TokenType) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL(typ))),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret(typ))
}

// ParseToken парсит JWT токен, проверяет подпись, срок действия и тип.
func (j *MakerImpl) ParseToken(tokenStr string, typ TokenType) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return j.secret(typ), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%s: invalid subject: %w", op, err)
	}
	return claims, nil
}
