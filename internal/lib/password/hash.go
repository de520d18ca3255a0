// Package password реализует функции для безопасного хеширования и проверки паролей.
//
// GetHash создает bcrypt-хеш пароля для хранения в таблице users.
// CompareHash сравнивает сохранённый хеш с введённым паролем.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch возвращается, если пароль не соответствует хешу
// или у пользователя пароль ещё не задан.
var ErrMismatch = errors.New("password mismatch")

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Пустой хеш (учётная запись, созданная партнёром без пароля) никогда не совпадает.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if originalHash == "" {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("%s: %w", op, ErrMismatch)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
