package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/unclebandit/coldreach-backend/internal/logger"
)

// ErrorResponse is the error envelope of every API route.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithErr(r.Context(), err).Error("failed to encode response")
	}
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, data)
}

func Created(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusCreated, data)
}

// Error writes {success:false, message}.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, ErrorResponse{Success: false, Message: message})
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusBadRequest, message)
}

func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusNotFound, message)
}

// InternalError logs err and answers with a generic message.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.WithErr(r.Context(), err).Error("internal error", "path", r.URL.Path)
	Error(w, r, http.StatusInternalServerError, "Internal server error")
}

// Decode reads a JSON body into dst. On failure it writes a 400 and returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, r, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
