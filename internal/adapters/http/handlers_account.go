package http

import (
	"net/http"

	"github.com/viralforge/webauth/internal/application"
)

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, identityFromContext(r.Context()))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":   identity.User,
		"source": identity.Source,
	})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateProfileRequest
	if err := decodeRequest(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_profile", err)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), identityFromContext(r.Context()), req)
	if err != nil {
		h.failBrowserOrJSON(w, r, "update_profile", "/profile", err)
		return
	}
	if wantsRedirect(r) {
		http.Redirect(w, r, "/profile?updated=1", http.StatusSeeOther)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req application.ChangePasswordRequest
	if err := decodeRequest(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}
	req.ConfirmRequired = isFormPost(r)
	session, err := h.service.ChangePassword(r.Context(), identityFromContext(r.Context()), req)
	if err != nil {
		h.failBrowserOrJSON(w, r, "change_password", "/profile", err)
		return
	}
	if session != nil {
		h.setSessionCookie(w, *session)
	}
	if wantsRedirect(r) {
		http.Redirect(w, r, "/profile?password=changed", http.StatusSeeOther)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}
