package models

import "time"

// PartnerStatus состояние заявки партнёра.
type PartnerStatus string

// Состояния заявки партнёра.
const (
	PartnerPending  PartnerStatus = "pending"
	PartnerVerified PartnerStatus = "verified"
	PartnerApproved PartnerStatus = "approved"
	PartnerRejected PartnerStatus = "rejected"
)

// Valid сообщает, что статус известен.
func (s PartnerStatus) Valid() bool {
	switch s {
	case PartnerPending, PartnerVerified, PartnerApproved, PartnerRejected:
		return true
	}
	return false
}

// PartnerRegistration заявка на регистрацию партнёра.
type PartnerRegistration struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	CompanyName  string        `json:"companyName"`
	ContactName  string        `json:"contactName"`
	Phone        string        `json:"phone"`
	Address      string        `json:"address"`
	Website      string        `json:"website"`
	TaxID        string        `json:"taxId"`
	BusinessType string        `json:"businessType"`
	Message      string        `json:"message"`
	Status       PartnerStatus `json:"status"`
	OTP          *string       `json:"-"`
	OTPExpires   *time.Time    `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// PartnerDetails поля полной заявки партнёра.
type PartnerDetails struct {
	CompanyName  string
	ContactName  string
	Phone        string
	Address      string
	Website      string
	TaxID        string
	BusinessType string
	Message      string
}

// PartnerFilter параметры выборки заявок.
type PartnerFilter struct {
	Status PartnerStatus
	Search string
}

// PartnerSummary количество заявок по статусам.
type PartnerSummary struct {
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
