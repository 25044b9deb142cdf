package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/viralforge/webauth/internal/domain"
)

const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// formAliases maps the camelCase names browsers post to the JSON field names.
var formAliases = map[string]string{
	"rememberMe":      "remember_me",
	"currentPassword": "current_password",
	"newPassword":     "new_password",
	"confirmPassword": "confirm_password",
}

var formBoolFields = map[string]bool{"remember_me": true}

// decodeRequest accepts a JSON body or a url-encoded form into the same request struct.
func decodeRequest(r *http.Request, dst any) error {
	if !isFormPost(r) {
		return decodeBody(r, dst)
	}
	if err := parseForm(r); err != nil {
		return err
	}
	fields := make(map[string]any, len(r.PostForm))
	for key := range r.PostForm {
		name := key
		if alias, ok := formAliases[key]; ok {
			name = alias
		}
		raw := r.PostForm.Get(key)
		if formBoolFields[name] {
			fields[name] = raw == "on" || raw == "true" || raw == "1"
			continue
		}
		fields[name] = raw
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

func isFormPost(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// wantsRedirect selects the browser flavor: form posts and HTML navigations
// get 303 redirects, everything else gets JSON.
func wantsRedirect(r *http.Request) bool {
	return isFormPost(r) || strings.Contains(r.Header.Get("Accept"), "text/html")
}

// safeReturnURL keeps only local absolute paths. Anything that could leave
// the site falls back.
func safeReturnURL(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return fallback
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return fallback
	}
	return raw
}

func returnURLFromRequest(r *http.Request) string {
	if v := r.URL.Query().Get("returnUrl"); v != "" {
		return v
	}
	if isFormPost(r) {
		return r.PostFormValue("returnUrl")
	}
	return ""
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, code, field string) {
	q := url.Values{}
	q.Set("error", code)
	if field != "" {
		q.Set("field", field)
	}
	if ret := safeReturnURL(returnURLFromRequest(r), ""); ret != "" {
		q.Set("returnUrl", ret)
	}
	http.Redirect(w, r, path+"?"+q.Encode(), http.StatusSeeOther)
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func readIP(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// writeMappedError renders err through mapDomainError. Internal errors carry
// their raw text only when the handler runs in development mode.
func (h *Handler) writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	if status == http.StatusInternalServerError && h.devErrors {
		msg = err.Error()
	}
	writeFieldError(w, status, code, msg, errorField(err))
}

// failBrowserOrJSON redirects browser callers back to path with an error code
// and writes the JSON error otherwise.
func (h *Handler) failBrowserOrJSON(w http.ResponseWriter, r *http.Request, operation, path string, err error) {
	if !wantsRedirect(r) {
		h.writeMappedError(r.Context(), w, operation, err)
		return
	}
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(r.Context(), operation, status, code, msg, err)
	redirectWithError(w, r, path, code, errorField(err))
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := "VALIDATION_ERROR"
	msg := "malformed request body"
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, code, msg, err)
	writeError(w, http.StatusBadRequest, code, msg)
}

func errorField(err error) string {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Field
	}
	return ""
}
