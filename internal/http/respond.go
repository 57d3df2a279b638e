package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"nosam/internal/core"
	"nosam/internal/currency"
	"nosam/internal/facade"
	"nosam/internal/log"
	"nosam/internal/store"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

// errorStatus maps domain errors to a status code and error type.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, store.ErrImport),
		errors.Is(err, core.ErrInvalidData),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnknownBillingCycle),
		errors.Is(err, currency.ErrUnknownCurrency),
		errors.Is(err, currency.ErrInvalidRates):
		return http.StatusBadRequest, log.ErrorTypeInvalidRequest
	case errors.Is(err, facade.ErrClosed),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, log.ErrorTypeUnavailable
	case errors.Is(err, store.ErrStorage):
		return http.StatusInternalServerError, log.ErrorTypeStorage
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}

// fail writes err with its mapped status and logs server-side failures.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, errType := errorStatus(err)
	if code >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, errType)
	}
	httpError(w, code, errType, "%v", err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, log.ErrorTypeInvalidRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func queryBool(r *http.Request, key string, def bool) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}
