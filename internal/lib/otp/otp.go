// Package otp генерирует и проверяет одноразовые числовые коды,
// которыми пользователь подтверждает владение почтой.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// Length число цифр в коде.
const Length = 6

var upper = big.NewInt(1_000_000)

// Generate возвращает случайный шестизначный код с ведущими нулями.
func Generate() (string, error) {
	const op = "otp.Generate"
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// Valid сообщает, что код совпал с сохранённым и срок его действия не истёк.
// Причину отказа наружу не сообщаем: неверный и просроченный код неразличимы.
func Valid(stored string, expires *time.Time, given string, now time.Time) bool {
	if stored == "" || expires == nil || given == "" {
		return false
	}
	match := subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
	return match && now.Before(*expires)
}
