package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/fileservice"
	"github.com/starford/vaultmcp/internal/vault"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error       string   `json:"error" validate:"required"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors onto HTTP statuses. Unclassified errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, op string, err error) {
	var nf *fileservice.NotFoundError
	var se *vault.StatusError
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errResponse{Error: err.Error(), Suggestions: nf.Suggestions})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidArgument),
		errors.Is(err, apperr.ErrInvalidPath),
		errors.Is(err, apperr.ErrInvalidPattern):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &se):
		slog.Warn(op+" failed upstream", slog.Int("status", se.StatusCode), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("vault request failed"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
