package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/prompts"
	"github.com/Harshitk-cp/signalrealm/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAnalysisFailed   = errors.New("analysis produced no fields")
	ErrNoAnalysisFields = errors.New("at least one analysis field is required")
	ErrUnknownField     = errors.New("unknown analysis field")
	ErrSignalNotFound   = errors.New("signal not found")
	ErrRealmNotFound    = errors.New("realm not found")
)

// PromptComposer builds the (system, user) prompt pairs for each pass.
type PromptComposer interface {
	ComposeAnalysis(layer domain.Layer, sig *domain.Signal, realm *domain.RealmLLMConfig, requested []string) (prompts.Prompt, error)
	ComposeReflection(rt domain.ReflectionType, sig *domain.Signal, realm *domain.RealmLLMConfig) (prompts.Prompt, error)
}

type AnalysisService struct {
	signalStore domain.SignalStore
	realmStore  domain.RealmStore
	router      domain.ModelRouter
	composer    PromptComposer
	logger      *zap.Logger
	now         func() time.Time
}

func NewAnalysisService(ss domain.SignalStore, rs domain.RealmStore, router domain.ModelRouter, composer PromptComposer, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		signalStore: ss,
		realmStore:  rs,
		router:      router,
		composer:    composer,
		logger:      logger,
		now:         time.Now,
	}
}

// SelectiveInput names the fields a selective analysis should produce.
type SelectiveInput struct {
	SignalID  uuid.UUID
	RealmID   uuid.UUID
	AccountID string
	Fields    []string
}

// Analyze runs the surface and structure passes in order and persists whatever
// they produced. A failed pass is recorded in history and does not stop the
// other. ErrAnalysisFailed is returned only when neither pass produced fields.
func (s *AnalysisService) Analyze(ctx context.Context, sig *domain.Signal, realmID uuid.UUID, accountID string) (domain.FieldMap, error) {
	cfg, account, err := s.prepare(ctx, sig.ID, realmID, accountID, nil)
	if err != nil {
		return nil, err
	}

	plan, err := s.composeLayers(domain.Layers, sig, cfg, nil)
	if err != nil {
		return nil, err
	}

	merged := domain.FieldMap{}
	for i, layer := range domain.Layers {
		fields, err := s.runLayer(ctx, sig.ID, *account, layer, plan[i], nil, false)
		if err != nil {
			if errors.Is(err, errHistoryWrite) {
				return nil, err
			}
			continue
		}
		for k, v := range fields {
			merged[k] = v
		}
	}

	if len(merged) == 0 {
		s.logger.Warn("analysis produced no fields",
			zap.String("signal_id", sig.ID.String()),
			zap.String("account_id", account.ID))
		return nil, ErrAnalysisFailed
	}

	if err := s.signalStore.UpdateAnalysisFields(ctx, sig.ID, merged); err != nil {
		return nil, fmt.Errorf("update analysis fields: %w", err)
	}
	applyFields(sig, merged)

	s.logger.Info("analysis complete",
		zap.String("signal_id", sig.ID.String()),
		zap.Strings("fields_updated", merged.Keys()))
	return merged, nil
}

// AnalyzeSelective produces only the requested fields. Only the layers owning
// those fields run, and a failed model call aborts the whole invocation
// without touching the signal's fields.
func (s *AnalysisService) AnalyzeSelective(ctx context.Context, in SelectiveInput) (domain.FieldMap, error) {
	if len(in.Fields) == 0 {
		return nil, ErrNoAnalysisFields
	}
	if unknown := domain.UnknownFields(in.Fields); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unknown, ", "))
	}

	sig, err := s.signalStore.GetByID(ctx, in.SignalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSignalNotFound
		}
		return nil, fmt.Errorf("load signal: %w", err)
	}

	cfg, account, err := s.prepare(ctx, sig.ID, in.RealmID, in.AccountID, in.Fields)
	if err != nil {
		return nil, err
	}

	layers := domain.LayersFor(in.Fields)
	plan, err := s.composeLayers(layers, sig, cfg, in.Fields)
	if err != nil {
		return nil, err
	}

	merged := domain.FieldMap{}
	for i, layer := range layers {
		fields, err := s.runLayer(ctx, sig.ID, *account, layer, plan[i], in.Fields, true)
		if err != nil {
			return nil, fmt.Errorf("%s layer: %w", layer, err)
		}
		for k, v := range fields {
			merged[k] = v
		}
	}

	if len(merged) == 0 {
		s.logger.Warn("selective analysis produced no fields",
			zap.String("signal_id", sig.ID.String()),
			zap.Strings("fields_requested", in.Fields))
		return nil, ErrAnalysisFailed
	}

	if err := s.signalStore.UpdateAnalysisFields(ctx, sig.ID, merged); err != nil {
		return nil, fmt.Errorf("update analysis fields: %w", err)
	}

	if err := s.appendHistory(ctx, sig.ID, domain.HistoryEntry{
		Type:            domain.HistorySelectiveComplete,
		Timestamp:       s.now().UTC(),
		AccountID:       account.ID,
		FieldsRequested: in.Fields,
		FieldsUpdated:   merged.Keys(),
	}); err != nil {
		return nil, err
	}
	return merged, nil
}

// prepare loads the realm settings and resolves the account. An unusable
// account is recorded as an aborted analysis before any model call.
func (s *AnalysisService) prepare(ctx context.Context, signalID, realmID uuid.UUID, accountID string, requested []string) (*domain.RealmLLMConfig, *domain.Account, error) {
	cfg, err := s.realmStore.GetLLMConfig(ctx, realmID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrRealmNotFound
		}
		return nil, nil, fmt.Errorf("load realm llm config: %w", err)
	}

	account, err := cfg.ResolveAccount(accountID)
	if err != nil {
		s.logger.Warn("analysis aborted",
			zap.String("signal_id", signalID.String()),
			zap.String("account_id", accountID),
			zap.Error(err))
		if herr := s.appendHistory(ctx, signalID, domain.HistoryEntry{
			Type:            domain.HistoryAnalysisAborted,
			Timestamp:       s.now().UTC(),
			AccountID:       accountID,
			FieldsRequested: requested,
			Error:           err.Error(),
		}); herr != nil {
			return nil, nil, herr
		}
		return nil, nil, err
	}
	return cfg, account, nil
}

// composeLayers renders every needed prompt up front so a template problem
// never leaves a half-run invocation behind.
func (s *AnalysisService) composeLayers(layers []domain.Layer, sig *domain.Signal, cfg *domain.RealmLLMConfig, requested []string) ([]prompts.Prompt, error) {
	plan := make([]prompts.Prompt, len(layers))
	for i, layer := range layers {
		p, err := s.composer.ComposeAnalysis(layer, sig, cfg, requested)
		if err != nil {
			return nil, fmt.Errorf("compose %s prompt: %w", layer, err)
		}
		plan[i] = p
	}
	return plan, nil
}

var errHistoryWrite = errors.New("append signal history")

// runLayer performs one pass and always records it. A model failure is
// returned as an error; an unparseable or empty answer yields an empty map.
func (s *AnalysisService) runLayer(ctx context.Context, signalID uuid.UUID, account domain.Account, layer domain.Layer, p prompts.Prompt, requested []string, selective bool) (domain.FieldMap, error) {
	entry := domain.HistoryEntry{
		Timestamp:       s.now().UTC(),
		AccountID:       account.ID,
		Model:           account.Model,
		SystemPrompt:    p.System,
		UserPrompt:      p.User,
		FieldsRequested: requested,
	}

	gen, err := s.router.Generate(ctx, account, p.User, p.System)
	if err != nil {
		s.logger.Warn("analysis pass failed",
			zap.String("signal_id", signalID.String()),
			zap.String("layer", string(layer)),
			zap.String("account_id", account.ID),
			zap.Error(err))
		entry.Type = domain.AnalysisHistoryType(layer, selective, true)
		entry.Error = err.Error()
		if herr := s.appendHistory(ctx, signalID, entry); herr != nil {
			return nil, herr
		}
		return nil, err
	}

	entry.Type = domain.AnalysisHistoryType(layer, selective, false)
	entry.Model = gen.Model
	entry.Response = gen.Content
	entry.Tokens = gen.TotalTokens()

	fields, perr := ParseAnalysisResponse(gen.Content, layer)
	if perr != nil {
		s.logger.Warn("unparseable analysis response",
			zap.String("signal_id", signalID.String()),
			zap.String("layer", string(layer)),
			zap.String("raw", gen.Content),
			zap.Error(perr))
		entry.Error = perr.Error()
	}
	if len(requested) > 0 {
		fields = filterFields(fields, requested)
	}
	if !hasValues(fields) {
		fields = domain.FieldMap{}
	}
	entry.FieldsUpdated = fields.Keys()

	if err := s.appendHistory(ctx, signalID, entry); err != nil {
		return nil, err
	}
	return fields, nil
}

func (s *AnalysisService) appendHistory(ctx context.Context, signalID uuid.UUID, entry domain.HistoryEntry) error {
	if err := s.signalStore.AppendHistory(ctx, signalID, entry); err != nil {
		return fmt.Errorf("%w %s: %w", errHistoryWrite, entry.Type, err)
	}
	return nil
}

func applyFields(sig *domain.Signal, fields domain.FieldMap) {
	if sig.Fields == nil {
		sig.Fields = domain.FieldMap{}
	}
	for k, v := range fields {
		sig.Fields[k] = v
	}
}
