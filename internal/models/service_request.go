package models

import "time"

// Статусы заявки на услугу. APPROVED и REJECTED конечные.
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
)

// ServiceRequest заявка партнёра на подключение услуги.
type ServiceRequest struct {
	ID           int64      `json:"id"`
	PartnerID    *int64     `json:"partnerId"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	CompanyName  string     `json:"companyName"`
	ServiceType  string     `json:"serviceType"`
	ServiceID    string     `json:"serviceId"`
	ServiceName  string     `json:"serviceName"`
	BillingCycle string     `json:"billingCycle"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	Notes        string     `json:"notes"`
	Status       string     `json:"status"`
	AdminNotes   *string    `json:"adminNotes"`
	ApprovedBy   *int64     `json:"approvedBy"`
	ApprovedAt   *time.Time `json:"approvedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ServiceRequestFilter параметры выборки заявок.
type ServiceRequestFilter struct {
	Status    string
	Search    string
	PartnerID *int64
}

// ApprovalResult итог одобрения заявки.
type ApprovalResult struct {
	Request     *ServiceRequest `json:"request"`
	Purchase    *Purchase       `json:"purchase"`
	UserCreated bool            `json:"userCreated"`
}
