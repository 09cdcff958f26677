package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"haushalt/internal/core"
	"haushalt/internal/scan"
	"haushalt/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeScanError maps workflow errors onto HTTP statuses.
func writeScanError(w http.ResponseWriter, err error) {
	var transition *scan.TransitionError
	switch {
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, transition.Error())
	case errors.Is(err, scan.ErrScanInProgress),
		errors.Is(err, scan.ErrNothingToUndo),
		errors.Is(err, scan.ErrCancelled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scan.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scan.ErrNoImage),
		errors.Is(err, scan.ErrEmptyItemList),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrUncategorizedItem):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeStoreError maps store and validation errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) && isValidationError(storeErr.Err) {
		writeError(w, http.StatusUnprocessableEntity, storeErr.Err.Error())
		return
	}
	if isValidationError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyDescription,
		core.ErrInvalidKind,
		core.ErrMissingPayer,
		core.ErrMissingHousehold,
		core.ErrInvalidDay,
		core.ErrInvalidMonth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
