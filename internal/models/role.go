package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role роль учётной записи. Набор ролей закрыт: ADMIN, USER, PARTNER.
type Role uint8

// Роли пользователей.
const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleUser
	RolePartner
)

// ErrUnknownRole возвращается при разборе неизвестной роли.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole разбирает строковое представление роли без учёта регистра.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN":
		return RoleAdmin, nil
	case "USER":
		return RoleUser, nil
	case "PARTNER":
		return RolePartner, nil
	default:
		return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleUser:
		return "USER"
	case RolePartner:
		return "PARTNER"
	case RoleUnknown:
		return "UNKNOWN"
	}
	return "UNKNOWN"
}

// Valid сообщает, что роль одна из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RolePartner:
		return true
	case RoleUnknown:
		return false
	}
	return false
}

// MarshalJSON кодирует роль строкой.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON разбирает роль из строки.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan читает роль из колонки TEXT.
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("models.Role.Scan: unsupported type %T", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value записывает роль строкой.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, r)
	}
	return r.String(), nil
}
