package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/daybook/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// partialRenameResponse reports a rename that failed after rewriting some
// entries; Paths lists the entries already carrying the new tag.
type partialRenameResponse struct {
	Error string   `json:"error"`
	Paths []string `json:"paths"`
}

// writeError maps domain errors to HTTP statuses. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, op string, err error) {
	status, body := errorFor(op, err)
	writeJSON(w, status, body)
}

func errorFor(op string, err error) (int, errResponse) {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrTagNotFound):
		return http.StatusNotFound, errorBody(err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, errorBody(err.Error())
	case errors.Is(err, apperr.ErrEmptyInput),
		errors.Is(err, apperr.ErrNoMatchingEntries),
		errors.Is(err, apperr.ErrEmptyLines),
		errors.Is(err, apperr.ErrInvalidRange):
		return http.StatusBadRequest, errorBody(err.Error())
	case errors.Is(err, apperr.ErrEmptyExpression),
		errors.Is(err, apperr.ErrMalformedExpression),
		errors.Is(err, apperr.ErrUnsupportedUnit):
		return http.StatusUnprocessableEntity, errorBody(err.Error())
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		return http.StatusInternalServerError, errorBody("internal error")
	}
}
