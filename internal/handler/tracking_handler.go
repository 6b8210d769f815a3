// internal/handler/tracking_handler.go
package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldreach-backend/internal/httputil"
	"github.com/unclebandit/coldreach-backend/internal/service"
	"github.com/unclebandit/coldreach-backend/internal/tracking"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}

// TrackingHandler serves the open pixel and the click redirect. Neither route is
// authenticated and neither ever fails.
type TrackingHandler struct {
	Service *service.TrackingService
}

func NewTrackingHandler(svc *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{Service: svc}
}

// OpenPixel handles GET /track/open/{file}, where file is "{token}.gif".
func (h *TrackingHandler) OpenPixel(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSuffix(chi.URLParam(r, "file"), ".gif")
	h.Service.RecordOpen(r.Context(), token)

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pixelGIF)
}

// Click handles GET /track/click/{token}?url=. Any decodable token records the click.
// Targets that fail redirectable, and invalid tokens, redirect to "/".
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	target := r.URL.Query().Get("url")
	if _, ok := tracking.Decode(token); !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.Service.RecordClick(r.Context(), token, target)
	if !redirectable(target) {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

var passthroughSchemes = map[string]bool{"tel": true, "sms": true, "mailto": true}

// redirectable accepts absolute http(s) URLs and root-relative paths. Other schemes
// pass only when listed in passthroughSchemes.
func redirectable(target string) bool {
	if target == "" || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") || strings.HasPrefix(target, "\\") {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	switch scheme := strings.ToLower(u.Scheme); {
	case scheme == "http" || scheme == "https":
		return u.Host != ""
	case scheme != "":
		return passthroughSchemes[scheme]
	}
	return u.Host == "" && strings.HasPrefix(u.Path, "/")
}

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the database answers.
type HealthHandler struct {
	DB Pinger
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		httputil.JSON(w, r, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": err.Error(),
		})
		return
	}
	httputil.OK(w, r, map[string]interface{}{"status": "ok", "database": "ok"})
}
