package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/echolabs/echo-support-go/internal/domain"

	"go.uber.org/zap"
)

// writeJSON serializes data as JSON and writes it to the response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeReply writes a support-route message body. Errors on this route
// use the "reply" key, not "error": the chat widget renders whatever
// arrives in reply.
func writeReply(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"reply": msg})
}

// writeError writes the logs-route error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleSupportError maps pipeline errors for POST /api/support.
// Validation is the only distinguished kind; every other failure,
// whatever its cause, produces the same generic 500 body.
func handleSupportError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch e := err.(type) {
	case *domain.ErrValidation:
		writeReply(w, http.StatusBadRequest, "Invalid request: "+e.Message)
	default:
		logger.Error("support request failed", zap.Error(err))
		writeReply(w, http.StatusInternalServerError, "Something went wrong on the server.")
	}
}

// handleLogsError maps errors for GET /api/logs/{agentID}. An absent
// store handle is a fixed 503; a query failure surfaces the underlying
// message with a 500.
func handleLogsError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var unavailable *domain.ErrStoreUnavailable
	if errors.As(err, &unavailable) {
		writeError(w, http.StatusServiceUnavailable, "Database offline")
		return
	}

	logger.Error("log listing failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}
