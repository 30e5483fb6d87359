package domain

import (
	"context"

	"github.com/google/uuid"
)

type SignalStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Signal, error)
	// UpdateAnalysisFields writes the given analysis fields in one statement.
	// Fields not present in the map are left untouched.
	UpdateAnalysisFields(ctx context.Context, id uuid.UUID, fields FieldMap) error
	AppendHistory(ctx context.Context, id uuid.UUID, entry HistoryEntry) error
}

type RealmStore interface {
	GetLLMConfig(ctx context.Context, realmID uuid.UUID) (*RealmLLMConfig, error)
}

type ReflectionStore interface {
	Create(ctx context.Context, r *Reflection) error
	ListBySignal(ctx context.Context, signalID uuid.UUID) ([]Reflection, error)
}

// ModelRouter sends one (system, user) prompt pair to the backend named by the
// account's provider.
type ModelRouter interface {
	Generate(ctx context.Context, account Account, userPrompt, systemPrompt string) (*Generation, error)
}
