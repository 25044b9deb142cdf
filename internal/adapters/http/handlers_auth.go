package http

import (
	"net/http"

	"github.com/viralforge/webauth/internal/application"
)

const defaultLandingPath = "/dashboard"

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeRequest(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}
	req.IPAddress = readIP(r)
	req.ConfirmRequired = isFormPost(r)

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.failBrowserOrJSON(w, r, "register", "/auth/register", err)
		return
	}

	h.setSessionCookie(w, res.Session)
	if wantsRedirect(r) {
		http.Redirect(w, r, safeReturnURL(returnURLFromRequest(r), defaultLandingPath), http.StatusSeeOther)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeRequest(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.failBrowserOrJSON(w, r, "login", "/auth/login", err)
		return
	}

	// a previous session on this browser is replaced, not left dangling
	if previous := h.sessionIDFromRequest(r); previous != "" {
		_ = h.service.Logout(r.Context(), previous)
	}
	h.setSessionCookie(w, res.Session)
	if wantsRedirect(r) {
		http.Redirect(w, r, safeReturnURL(returnURLFromRequest(r), defaultLandingPath), http.StatusSeeOther)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// logout never fails: an unknown or missing session still clears the cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := h.sessionIDFromRequest(r); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			logHTTPOperationError(r.Context(), "logout", http.StatusOK, "SESSION_DESTROY_FAILED", "session not destroyed", err)
		}
	}
	h.clearSessionCookie(w)
	if wantsRedirect(r) {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
