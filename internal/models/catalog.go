package models

import "time"

// Category категория каталога.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TypeCount   int       `json:"typeCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryType тип внутри категории.
type CategoryType struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"categoryId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Статусы и приоритеты услуг.
const (
	ServiceActive   = "active"
	ServiceInactive = "inactive"

	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Service услуга каталога, принадлежащая администратору.
type Service struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CategoryID     *int64    `json:"categoryId"`
	CategoryTypeID *int64    `json:"categoryTypeId"`
	MonthlyPrice   float64   `json:"monthlyPrice"`
	YearlyPrice    float64   `json:"yearlyPrice"`
	Features       []string  `json:"features"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	OwnerID        int64     `json:"ownerId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ServiceFilter параметры выборки услуг.
type ServiceFilter struct {
	Search     string
	Status     string
	Priority   string
	CategoryID *int64
}
