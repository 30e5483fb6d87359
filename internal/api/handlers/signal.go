package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SignalReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Signal, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, sig *domain.Signal, realmID uuid.UUID, accountID string) (domain.FieldMap, error)
	AnalyzeSelective(ctx context.Context, in service.SelectiveInput) (domain.FieldMap, error)
}

type Reflector interface {
	Reflect(ctx context.Context, sig *domain.Signal, realmID uuid.UUID, types []domain.ReflectionType, accountID string) ([]domain.Reflection, error)
	ListBySignal(ctx context.Context, signalID uuid.UUID) ([]domain.Reflection, error)
}

type SignalHandler struct {
	signals     SignalReader
	analysis    Analyzer
	reflections Reflector
}

func NewSignalHandler(signals SignalReader, analysis Analyzer, reflections Reflector) *SignalHandler {
	return &SignalHandler{signals: signals, analysis: analysis, reflections: reflections}
}

type analyzeRequest struct {
	AccountID string   `json:"account_id,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

type analyzeResponse struct {
	Fields domain.FieldMap `json:"fields"`
}

type selectiveResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Fields  domain.FieldMap `json:"fields,omitempty"`
}

type reflectRequest struct {
	Types     []string `json:"types"`
	AccountID string   `json:"account_id,omitempty"`
}

type reflectionsResponse struct {
	Reflections []domain.Reflection `json:"reflections"`
}

func (h *SignalHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	sig, ok := h.loadSignal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

// Analyze runs full analysis when no fields are given, selective otherwise.
func (h *SignalHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if unknown := domain.UnknownFields(req.Fields); len(unknown) > 0 {
		writeError(w, http.StatusBadRequest, "unknown fields: "+strings.Join(unknown, ", "))
		return
	}

	sig, ok := h.loadSignal(w, r)
	if !ok {
		return
	}

	if len(req.Fields) == 0 {
		fields, err := h.analysis.Analyze(r.Context(), sig, sig.RealmID, req.AccountID)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, analyzeResponse{Fields: fields})
		return
	}

	fields, err := h.analysis.AnalyzeSelective(r.Context(), service.SelectiveInput{
		SignalID:  sig.ID,
		RealmID:   sig.RealmID,
		AccountID: req.AccountID,
		Fields:    req.Fields,
	})
	if err != nil {
		writeJSON(w, statusFor(err), selectiveResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, selectiveResponse{Success: true, Fields: fields})
}

func (h *SignalHandler) Reflect(w http.ResponseWriter, r *http.Request) {
	var req reflectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	types, err := service.ParseReflectionTypes(req.Types)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sig, ok := h.loadSignal(w, r)
	if !ok {
		return
	}

	created, err := h.reflections.Reflect(r.Context(), sig, sig.RealmID, types, req.AccountID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, reflectionsResponse{Reflections: created})
}

func (h *SignalHandler) ListReflections(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signal id")
		return
	}

	list, err := h.reflections.ListBySignal(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reflections")
		return
	}
	if list == nil {
		list = []domain.Reflection{}
	}
	writeJSON(w, http.StatusOK, reflectionsResponse{Reflections: list})
}

func (h *SignalHandler) loadSignal(w http.ResponseWriter, r *http.Request) (*domain.Signal, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signal id")
		return nil, false
	}

	sig, err := h.signals.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSignalNotFound) {
			writeError(w, http.StatusNotFound, "signal not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load signal")
		return nil, false
	}
	return sig, true
}

// decodeOptional decodes a JSON body, treating an empty body as {}.
func decodeOptional(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
