// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов HTTP-обработчиков: {success, data, message, warning}.
package response

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Response описывает стандартную структуру JSON-ответа сервера.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"invalid request body"`
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{Success: true, Data: data}
}

// OKWithWarning успешный ответ, в котором побочное действие (письмо) не выполнилось.
func OKWithWarning(data any, warning string) Response {
	return Response{Success: true, Data: data, Warning: warning}
}

// OKMessage успешный ответ без данных.
func OKMessage(msg string) Response {
	return Response{Success: true, Message: msg}
}

// List формирует данные страницы: {key: items, pagination, total}.
func List(key string, items any, page models.PageRequest, total int) Response {
	return OKWithData(map[string]any{
		key:          items,
		"pagination": models.NewPagination(page, total),
		"total":      total,
	})
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{Success: false, Message: msg}
}

// ValidationMessage превращает ошибки валидатора в текст через запятую.
func ValidationMessage(errs validator.ValidationErrors) string {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "len":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be %s characters long", err.Field(), err.Param()))
		case "numeric":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "gte", "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must not be negative", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return strings.Join(errsMsgs, ", ")
}

// ValidationError формирует Response на основе ошибок валидации.
func ValidationError(errs validator.ValidationErrors) Response {
	return Error(ValidationMessage(errs))
}

type debugKey struct{}

// Debug middleware включает подробные сообщения о внутренних ошибках.
// В prod подключается с false.
func Debug(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), debugKey{}, enabled)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func debugEnabled(r *http.Request) bool {
	enabled, _ := r.Context().Value(debugKey{}).(bool)
	return enabled
}

// FromError единая точка перевода ошибок сервисов в HTTP-ответ.
// Статус берётся из категории apperr; текст внутренних ошибок скрывается вне debug.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := apperr.MessageOf(err)
	if kind == apperr.KindInternal && debugEnabled(r) {
		msg = err.Error()
	}
	render.Status(r, kind.HTTPStatus())
	render.JSON(w, r, Error(msg))
}

// JSON пишет ответ с указанным статусом.
func JSON(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	render.Status(r, status)
	render.JSON(w, r, resp)
}
