// Package apperr описывает таксономию прикладных ошибок API.
//
// Бизнес-логика возвращает *Error с нужным Kind, а HTTP-слой в одном месте
// (response.FromError) переводит Kind в статус ответа. Ошибки хранилища
// наружу в сыром виде не попадают.
package apperr

import (
	"errors"
	"net/http"
)

// Kind категория ошибки.
type Kind uint8

const (
	// KindInternal непредвиденная ошибка (500).
	KindInternal Kind = iota
	// KindValidation некорректный или неполный ввод (400).
	KindValidation
	// KindUnauthenticated отсутствует или невалиден токен (401).
	KindUnauthenticated
	// KindForbidden валидный токен, но неподходящая роль (403).
	KindForbidden
	// KindNotFound объект не найден (404).
	KindNotFound
	// KindConflict дубликат или нарушение бизнес-правила перехода (409).
	KindConflict
	// KindUpstream сбой внешнего провайдера (почта) после успешной записи.
	KindUpstream
)

// Error прикладная ошибка с категорией и сообщением для клиента.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New создаёт ошибку заданной категории.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap создаёт ошибку заданной категории поверх исходной причины.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation сокращение для New(KindValidation, msg).
func Validation(msg string) *Error { return New(KindValidation, msg) }

// NotFound сокращение для New(KindNotFound, msg).
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// Conflict сокращение для New(KindConflict, msg).
func Conflict(msg string) *Error { return New(KindConflict, msg) }

// KindOf возвращает категорию первой *Error в цепочке, иначе KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение для клиента.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}

// HTTPStatus переводит категорию в HTTP-статус.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
