package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/llm"
	"github.com/Harshitk-cp/signalrealm/internal/service"
)

// writeJSON encodes v before committing the status, so an unencodable value
// becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service, domain and provider errors onto HTTP statuses.
func statusFor(err error) int {
	var providerErr *llm.ProviderError
	switch {
	case errors.Is(err, service.ErrSignalNotFound),
		errors.Is(err, service.ErrRealmNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownField),
		errors.Is(err, service.ErrNoAnalysisFields),
		errors.Is(err, service.ErrInvalidReflectionType),
		errors.Is(err, service.ErrNoReflectionTypes):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrAccountDisabled),
		errors.Is(err, domain.ErrNoDefaultAccount),
		errors.Is(err, llm.ErrUnknownProvider),
		errors.Is(err, llm.ErrProviderNotImplemented):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrAnalysisFailed),
		errors.Is(err, service.ErrReflectionFailed),
		errors.Is(err, llm.ErrMalformedResponse),
		errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
