package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

func TestDecode(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required,email"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"email":"a@x.com"}`},
		{name: "broken json", body: `{"email":`, wantErr: "invalid request body"},
		{name: "missing field", body: `{}`, wantErr: "field Email is a required field"},
		{name: "bad email", body: `{"email":"nope"}`, wantErr: "field Email must be a valid email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var b body
			err := Decode(r, validator.New(), &b)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", b.Email)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.wantErr, apperr.MessageOf(err))
		})
	}
}

func TestID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "42", want: 42},
		{raw: "abc", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/items/"+tt.raw, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.raw)
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

			id, err := ID(r, "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestPage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500&search=%20acme%20", nil)
	p := Page(r)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, "acme", Search(r))

	p = Page(httptest.NewRequest(http.MethodGet, "/?page=x", nil))
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	p = Page(httptest.NewRequest(http.MethodGet, "/?page=9223372036854775807&limit=100", nil))
	assert.Equal(t, models.MaxPage, p.Page)
	assert.Positive(t, p.Offset())
}

func TestOptionalID(t *testing.T) {
	id, err := OptionalID(httptest.NewRequest(http.MethodGet, "/?partnerId=7", nil), "partnerId")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	id, err = OptionalID(httptest.NewRequest(http.MethodGet, "/", nil), "partnerId")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = OptionalID(httptest.NewRequest(http.MethodGet, "/?partnerId=x", nil), "partnerId")
	assert.Error(t, err)
}
