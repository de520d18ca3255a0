package models

import "time"

// Типы услуг в покупке.
const (
	ServiceTypeCloud  = "CLOUD"
	ServiceTypeServer = "SERVER"
)

// Статусы оплаты.
const (
	PaymentCompleted = "COMPLETED"
	PaymentPending   = "PENDING"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
)

// Тарифные планы и периоды оплаты.
const (
	PlanMonthly   = "MONTHLY"
	PlanQuarterly = "QUARTERLY"
	PlanYearly    = "YEARLY"
)

// Фильтры по сроку действия покупки.
const (
	ExpirySoon    = "soon"
	ExpiryExpired = "expired"
	ExpiryActive  = "active"
)

// Purchase запись журнала покупок. После создания меняется только PaymentStatus.
type Purchase struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	UserEmail        string    `json:"userEmail,omitempty"`
	ServiceType      string    `json:"serviceType"`
	ServiceID        string    `json:"serviceId"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	PaymentMethod    string    `json:"paymentMethod"`
	PaymentStatus    string    `json:"paymentStatus"`
	TransactionID    string    `json:"transactionId"`
	PlanType         string    `json:"planType"`
	ExpiresAt        time.Time `json:"expiresAt"`
	ServiceRequestID *int64    `json:"serviceRequestId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PurchaseFilter параметры выборки покупок. Now задаёт момент отсчёта для Expiry.
type PurchaseFilter struct {
	PaymentStatus string
	ServiceType   string
	PlanType      string
	UserID        *int64
	Expiry        string
	Search        string
	Now           time.Time
}

// StatusAggregate количество и сумма покупок одного статуса оплаты.
type StatusAggregate struct {
	Status string
	Count  int
	Amount float64
}

// ExpiryCounts количество покупок по сроку действия на момент запроса.
type ExpiryCounts struct {
	Active       int
	ExpiringSoon int
	Expired      int
}

// PurchaseStats сводная статистика журнала покупок.
type PurchaseStats struct {
	TotalPurchases int            `json:"totalPurchases"`
	TotalRevenue   float64        `json:"totalRevenue"`
	ByStatus       map[string]int `json:"byStatus"`
	Active         int            `json:"active"`
	ExpiringSoon   int            `json:"expiringSoon"`
	Expired        int            `json:"expired"`
}

// ExpiryReminder сообщение о скором окончании покупки.
type ExpiryReminder struct {
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	ServiceType   string    `json:"serviceType"`
	ServiceID     string    `json:"serviceId"`
	ExpiresAt     time.Time `json:"expiresAt"`
	TransactionID string    `json:"transactionId"`
}
