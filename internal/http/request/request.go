// Package request разбирает входные данные HTTP-запросов: тело JSON, параметры пути и пагинацию.
package request

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

var (
	// ErrInvalidBody тело запроса не является корректным JSON.
	ErrInvalidBody = apperr.Validation("invalid request body")
	// ErrInvalidID параметр пути id не является положительным числом.
	ErrInvalidID = apperr.Validation("invalid id")
)

// Decode читает JSON-тело в v и проверяет его тегами validate.
// Ошибки возвращаются как apperr.KindValidation.
func Decode(r *http.Request, validate *validator.Validate, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ErrInvalidBody
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperr.Validation(response.ValidationMessage(verrs))
		}
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}

// ID возвращает числовой параметр пути name.
func ID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// Page читает page и limit из query string.
func Page(r *http.Request) models.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return models.NewPageRequest(page, limit)
}

// Search строка поиска без пробелов по краям.
func Search(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("search"))
}

// OptionalID читает необязательный числовой query-параметр.
func OptionalID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Validation("invalid " + name)
	}
	return &id, nil
}
