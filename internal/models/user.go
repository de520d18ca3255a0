// Package models содержит доменные модели бэк-офиса: пользователей,
// заявки партнёров, каталог, серверы, покупки, заявки на услуги и формы.
package models

import "time"

// User учётная запись. PartnerID ссылается на партнёра, который привёл пользователя.
type User struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	CompanyName     string     `json:"companyName"`
	TaxID           string     `json:"taxId"`
	PartnerID       *int64     `json:"partnerId"`
	PartnerEmail    *string    `json:"partnerEmail,omitempty"`
	RefreshToken    *string    `json:"-"`
	ResetOTP        *string    `json:"-"`
	ResetOTPExpires *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// UserProfile изменяемые поля профиля.
type UserProfile struct {
	Email       string
	Name        string
	Phone       string
	Address     string
	CompanyName string
	TaxID       string
}

// UserFilter параметры выборки пользователей.
type UserFilter struct {
	Search    string
	Role      Role
	PartnerID *int64
}
