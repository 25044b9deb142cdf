package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
)

func (h *Handler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.AdminDashboard(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		h.writeMappedError(r.Context(), w, "admin_dashboard", err)
		return
	}
	writeSuccess(w, http.StatusOK, dash)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	users, err := h.service.ListUsers(r.Context(), identityFromContext(r.Context()), page)
	if err != nil {
		h.writeMappedError(r.Context(), w, "list_users", err)
		return
	}
	writeSuccess(w, http.StatusOK, users)
}

func (h *Handler) toggleUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeMappedError(r.Context(), w, "toggle_user_status", &domain.ValidationError{Field: "id", Message: "invalid user id"})
		return
	}
	user, err := h.service.ToggleUserStatus(r.Context(), identityFromContext(r.Context()), userID)
	if err != nil {
		h.failBrowserOrJSON(w, r, "toggle_user_status", "/admin/users", err)
		return
	}
	if wantsRedirect(r) {
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}
