package models

import "time"

// FormType тип формы обратной связи.
type FormType string

// Типы форм.
const (
	FormDemo           FormType = "demo"
	FormContact        FormType = "contact"
	FormGetInTouch     FormType = "get_in_touch"
	FormServiceRequest FormType = "service_request"
)

// Valid сообщает, что тип формы известен.
func (t FormType) Valid() bool {
	switch t {
	case FormDemo, FormContact, FormGetInTouch, FormServiceRequest:
		return true
	}
	return false
}

// FormStatusNew статус новой формы.
const FormStatusNew = "new"

// FormSubmission отправленная форма. UserID заполняется, если отправитель вошёл в систему.
type FormSubmission struct {
	ID          int64     `json:"id"`
	Type        FormType  `json:"type"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CompanyName string    `json:"companyName"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	ServiceName string    `json:"serviceName"`
	Status      string    `json:"status"`
	UserID      *int64    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FormFilter параметры выборки форм.
type FormFilter struct {
	Type   FormType
	Status string
	Search string
}
