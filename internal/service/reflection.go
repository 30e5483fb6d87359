package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrReflectionFailed      = errors.New("no reflection could be generated")
	ErrInvalidReflectionType = errors.New("invalid reflection type")
	ErrNoReflectionTypes     = errors.New("at least one reflection type is required")
)

type ReflectionService struct {
	reflectionStore domain.ReflectionStore
	realmStore      domain.RealmStore
	router          domain.ModelRouter
	composer        PromptComposer
	logger          *zap.Logger
	now             func() time.Time
}

func NewReflectionService(rfs domain.ReflectionStore, rs domain.RealmStore, router domain.ModelRouter, composer PromptComposer, logger *zap.Logger) *ReflectionService {
	return &ReflectionService{
		reflectionStore: rfs,
		realmStore:      rs,
		router:          router,
		composer:        composer,
		logger:          logger,
		now:             time.Now,
	}
}

// ParseReflectionTypes validates caller-supplied type names, case-insensitively.
func ParseReflectionTypes(names []string) ([]domain.ReflectionType, error) {
	if len(names) == 0 {
		return nil, ErrNoReflectionTypes
	}
	out := make([]domain.ReflectionType, 0, len(names))
	for _, n := range names {
		rt, ok := domain.ParseReflectionType(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidReflectionType, n)
		}
		out = append(out, rt)
	}
	return out, nil
}

// Reflect creates one artifact per requested type, in order. A type that fails
// is logged and skipped. ErrReflectionFailed is returned when nothing was
// created.
func (s *ReflectionService) Reflect(ctx context.Context, sig *domain.Signal, realmID uuid.UUID, types []domain.ReflectionType, accountID string) ([]domain.Reflection, error) {
	if len(types) == 0 {
		return nil, ErrNoReflectionTypes
	}
	normalized := make([]domain.ReflectionType, 0, len(types))
	for _, rt := range types {
		parsed, ok := domain.ParseReflectionType(string(rt))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidReflectionType, rt)
		}
		normalized = append(normalized, parsed)
	}

	cfg, err := s.realmStore.GetLLMConfig(ctx, realmID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRealmNotFound
		}
		return nil, fmt.Errorf("load realm llm config: %w", err)
	}

	var created []domain.Reflection
	for _, rt := range normalized {
		r, err := s.reflectOne(ctx, sig, cfg, rt, accountID)
		if err != nil {
			s.logger.Warn("reflection failed",
				zap.String("signal_id", sig.ID.String()),
				zap.String("reflection_type", string(rt)),
				zap.String("account_id", accountID),
				zap.Error(err))
			continue
		}

		if err := s.reflectionStore.Create(ctx, r); err != nil {
			return created, fmt.Errorf("create %s reflection: %w", rt, err)
		}
		created = append(created, *r)
	}

	if len(created) == 0 {
		return nil, ErrReflectionFailed
	}
	return created, nil
}

func (s *ReflectionService) reflectOne(ctx context.Context, sig *domain.Signal, cfg *domain.RealmLLMConfig, rt domain.ReflectionType, accountID string) (*domain.Reflection, error) {
	account, err := cfg.ResolveAccount(accountID)
	if err != nil {
		return nil, err
	}

	p, err := s.composer.ComposeReflection(rt, sig, cfg)
	if err != nil {
		return nil, fmt.Errorf("compose prompt: %w", err)
	}

	gen, err := s.router.Generate(ctx, *account, p.User, p.System)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return &domain.Reflection{
		ID:       uuid.New(),
		SignalID: sig.ID,
		RealmID:  sig.RealmID,
		Type:     rt,
		Source:   account.ID,
		Content:  gen.Content,
		History: []domain.HistoryEntry{{
			Type:         domain.ReflectionHistoryType(rt),
			Timestamp:    now,
			AccountID:    account.ID,
			Model:        gen.Model,
			SystemPrompt: p.System,
			UserPrompt:   p.User,
			Response:     gen.Content,
			Tokens:       gen.TotalTokens(),
		}},
		CreatedAt: now,
	}, nil
}

// ListBySignal returns the artifacts previously created for a signal.
func (s *ReflectionService) ListBySignal(ctx context.Context, signalID uuid.UUID) ([]domain.Reflection, error) {
	return s.reflectionStore.ListBySignal(ctx, signalID)
}
