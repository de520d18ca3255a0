package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/middlewarectx"
)

// CookieConfig параметры cookie сессии.
type CookieConfig struct {
	Secure     bool
	Domain     string
	SameSite   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) sameSite() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c CookieConfig) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	}
}

func (c CookieConfig) setAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(middlewarectx.AccessCookie, token, c.AccessTTL))
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(middlewarectx.RefreshCookie, token, c.RefreshTTL))
}

// clear удаляет обе cookie сессии (MaxAge < 0).
func (c CookieConfig) clear(w http.ResponseWriter) {
	for _, name := range []string{middlewarectx.AccessCookie, middlewarectx.RefreshCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}
