// internal/controller/errors.go
package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/httputil"
)

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr          *appErrors.RequestError
		quotaErr        *appErrors.QuotaExceededError
		tierErr         *appErrors.TierRestrictedError
		profileNotFound *appErrors.ErrSMTPProfileNotFound
		tplNotFound     *appErrors.ErrTemplateNotFound
		userNotFound    *appErrors.ErrUserNotFound
	)
	switch {
	case errors.As(err, &reqErr):
		httputil.BadRequest(w, r, reqErr.Message)
	case errors.As(err, &quotaErr):
		httputil.Error(w, r, http.StatusForbidden, quotaErr.Error())
	case errors.As(err, &tierErr):
		httputil.Error(w, r, http.StatusForbidden, tierErr.Error())
	case errors.As(err, &profileNotFound):
		httputil.NotFound(w, r, "SMTP configuration not found")
	case errors.As(err, &tplNotFound):
		httputil.NotFound(w, r, "Template not found")
	case errors.As(err, &userNotFound):
		httputil.NotFound(w, r, "User not found")
	default:
		httputil.InternalError(w, r, err)
	}
}

// idParam parses the {id} route parameter. It writes a 400 and returns false when invalid.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, r, "invalid id")
		return 0, false
	}
	return id, true
}

// baseURL is the origin tracking links point at: the configured public URL, or the
// origin of the current request.
func baseURL(configured string, r *http.Request) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
