package http

import (
	"net/http"
	"time"

	"github.com/viralforge/webauth/internal/domain"
)

const defaultSessionCookieName = "webauth_sid"

type CookieConfig struct {
	Name   string
	Secure bool
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = defaultSessionCookieName
	}
	return c
}

func (h *Handler) sessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sizes Max-Age to the session's own lifetime, so a
// remember-me session keeps its 30 days and a plain one its 24 hours.
func (h *Handler) setSessionCookie(w http.ResponseWriter, session domain.Session) {
	maxAge := int(session.ExpiresAt.Sub(session.CreatedAt) / time.Second)
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.SessionID,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
