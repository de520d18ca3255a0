package models

import "time"

// Операционные системы VPS и производители процессоров выделенных серверов.
const (
	OSLinux   = "LINUX"
	OSWindows = "WINDOWS"

	ChipAMD   = "AMD"
	ChipIntel = "INTEL"
)

// VPSServer предложение виртуального сервера.
type VPSServer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OS        string    `json:"os"`
	CPU       string    `json:"cpu"`
	RAM       string    `json:"ram"`
	Storage   string    `json:"storage"`
	Bandwidth string    `json:"bandwidth"`
	Location  string    `json:"location"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DedicatedServer предложение выделенного сервера.
type DedicatedServer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Chip      string    `json:"chip"`
	Processor string    `json:"processor"`
	Cores     int       `json:"cores"`
	RAM       string    `json:"ram"`
	Storage   string    `json:"storage"`
	Bandwidth string    `json:"bandwidth"`
	Location  string    `json:"location"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ServerFilter параметры выборки серверов. OS применяется к VPS, Chip к выделенным.
type ServerFilter struct {
	Search string
	OS     string
	Chip   string
}
