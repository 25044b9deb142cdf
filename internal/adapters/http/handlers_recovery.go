package http

import (
	"errors"
	"net/http"

	"github.com/viralforge/webauth/internal/application"
	"github.com/viralforge/webauth/internal/domain"
)

const resetRequestedMessage = "If the email is registered, a reset link has been sent"

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeRequest(r, &req); err != nil {
		writeValidationError(r.Context(), w, "forgot_password", err)
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email, readIP(r)); err != nil {
		h.failBrowserOrJSON(w, r, "forgot_password", "/auth/forgot-password", err)
		return
	}
	if wantsRedirect(r) {
		http.Redirect(w, r, "/auth/login?reset=requested", http.StatusSeeOther)
		return
	}
	writeMessage(w, http.StatusOK, resetRequestedMessage)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req application.PasswordResetRequest
	if err := decodeRequest(r, &req); err != nil {
		writeValidationError(r.Context(), w, "reset_password", err)
		return
	}
	req.IPAddress = readIP(r)
	req.ConfirmRequired = isFormPost(r)
	err := h.service.ResetPassword(r.Context(), req)
	if errors.Is(err, domain.ErrInvalidToken) {
		// a dead reset link is a form problem, not an authentication failure
		err = &domain.ValidationError{Field: "token", Message: "reset link is invalid or has expired"}
	}
	if err != nil {
		h.failBrowserOrJSON(w, r, "reset_password", "/auth/reset-password", err)
		return
	}
	h.clearSessionCookie(w)
	if wantsRedirect(r) {
		http.Redirect(w, r, "/auth/login?reset=done", http.StatusSeeOther)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset")
}
