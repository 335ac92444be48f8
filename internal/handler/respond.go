package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/security/middleware"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse is returned by operations with nothing else to report
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps err to its status code. Internal errors are logged and
// their cause never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, apperr.HTTPStatus(kind), ErrorResponse{Message: apperr.MessageOf(err)})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// callerID returns the authenticated user, writing a 401 when there is none
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.UserIDFromContext(r.Context())
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "Authentication required"})
		return "", false
	}
	return id, true
}
