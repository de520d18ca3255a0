// Package session реализует HTTP-обработчики входа, выхода, обновления токена
// и сброса пароля. Токены выдаются в httpOnly cookie и дублируются в теле ответа.
package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/request"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/auth"
)

// LoginRequest учётные данные для входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest refresh токен, если он не пришёл в cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// EmailRequest запрос кода сброса пароля.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// OTPRequest проверка кода сброса пароля.
type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest установка нового пароля по коду.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

var errMissingRefresh = apperr.New(apperr.KindUnauthenticated, "refresh token required")

// Handler обрабатывает HTTP-запросы сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	cookies  CookieConfig
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service, cookies CookieConfig) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		cookies:  cookies,
		validate: validator.New(),
	}
}

// refreshToken берёт refresh токен из cookie, иначе из тела запроса.
func (h *Handler) refreshToken(r *http.Request) string {
	if c, err := r.Cookie(middlewarectx.RefreshCookie); err == nil && c.Value != "" {
		return c.Value
	}
	var req RefreshRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Login godoc
// @Summary Вход клиента (USER или PARTNER)
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body LoginRequest true "Учетные данные"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Роль не подходит для этого входа"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, auth.AudienceCustomer, "handlers.session.Login")
}

// AdminLogin godoc
// @Summary Вход администратора
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body LoginRequest true "Учетные данные"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Не администратор"
// @Router /auth/admin/login [post]
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, auth.AudienceAdmin, "handlers.session.AdminLogin")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, aud auth.Audience, op string) {
	log := h.logger(r, op)

	var req LoginRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		log.Info("invalid login request", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password, aud)
	if err != nil {
		log.Info("login failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	h.cookies.setAccess(w, sess.AccessToken)
	h.cookies.setRefresh(w, sess.RefreshToken)
	log.Info("login success", slog.Int64("user_id", sess.User.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user":        sess.User,
		"accessToken": sess.AccessToken,
	}))
}

// Logout godoc
// @Summary Выход
// @Description Отзывает refresh токен и очищает cookie. Без действующего access токена
// @Description отзывается refresh токен из cookie или тела. Cookie очищаются даже при ошибке БД.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body RefreshRequest false "Refresh токен, если нет cookie"
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.Logout"
	log := h.logger(r, op)

	if user, ok := middlewarectx.UserFrom(r.Context()); ok {
		if err := h.service.Logout(r.Context(), user.ID); err != nil {
			log.Error("failed to revoke refresh token", sl.Err(err))
		}
	} else if token := h.refreshToken(r); token != "" {
		if err := h.service.LogoutByRefresh(r.Context(), token); err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				log.Info("logout with invalid refresh token")
			} else {
				log.Error("failed to revoke refresh token", sl.Err(err))
			}
		}
	}

	h.cookies.clear(w)
	render.JSON(w, r, response.OKMessage("logged out"))
}

// Refresh godoc
// @Summary Обновить access токен
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body RefreshRequest false "Refresh токен, если нет cookie"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Токен недействителен"
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.Refresh"
	log := h.logger(r, op)

	token := h.refreshToken(r)
	if token == "" {
		response.FromError(w, r, errMissingRefresh)
		return
	}

	access, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		log.Info("refresh failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	h.cookies.setAccess(w, access)
	render.JSON(w, r, response.OKWithData(map[string]any{"accessToken": access}))
}

// ForgotPassword godoc
// @Summary Запросить код сброса пароля
// @Description Ответ одинаков для существующих и неизвестных адресов.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} response.Response
// @Router /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.ForgotPassword"
	log := h.logger(r, op)

	var req EmailRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		log.Error("forgot password failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("if the account exists, a reset code has been sent"))
}

// VerifyOTP godoc
// @Summary Проверить код сброса пароля
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body OTPRequest true "Email и код"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный или просроченный код"
// @Router /auth/verify-otp [post]
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.VerifyOTP"
	log := h.logger(r, op)

	var req OTPRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	if err := h.service.VerifyResetOTP(r.Context(), req.Email, req.OTP); err != nil {
		log.Info("otp verification failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("code is valid"))
}

// ResetPassword godoc
// @Summary Установить новый пароль по коду
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body ResetPasswordRequest true "Email, код и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный или просроченный код"
// @Router /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.ResetPassword"
	log := h.logger(r, op)

	var req ResetPasswordRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		log.Info("password reset failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	h.cookies.clear(w)
	render.JSON(w, r, response.OKMessage("password has been reset"))
}
