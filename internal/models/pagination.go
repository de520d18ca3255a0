package models

// Ограничения пагинации.
const (
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 1_000_000
)

// PageRequest номер страницы и размер страницы из query string.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest нормализует параметры: 1 <= page <= MaxPage, 1 <= limit <= MaxLimit.
// Верхняя граница page не даёт Offset переполниться.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Offset смещение первой строки страницы.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination блок пагинации в ответе.
type Pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// NewPagination считает число страниц для total записей.
func NewPagination(p PageRequest, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		Current: p.Page,
		Total:   pages,
		HasNext: p.Page < pages,
		HasPrev: p.Page > 1,
	}
}

// Page страница результатов с общим количеством записей.
type Page[T any] struct {
	Items []T
	Total int
}
