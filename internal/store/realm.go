package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RealmStore struct {
	db *pgxpool.Pool
}

func NewRealmStore(db *pgxpool.Pool) *RealmStore {
	return &RealmStore{db: db}
}

// Create inserts a realm with its LLM settings. A zero RealmID is assigned.
func (s *RealmStore) Create(ctx context.Context, name string, cfg *domain.RealmLLMConfig) error {
	accounts, err := json.Marshal(cfg.Accounts)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if cfg.RealmID == uuid.Nil {
		cfg.RealmID = uuid.New()
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO realms (id, name, llm_accounts, default_llm_account_id, realm_context, realm_holder_name)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))`,
		cfg.RealmID, name, accounts, cfg.DefaultAccountID, cfg.RealmContext, cfg.RealmHolderName,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *RealmStore) GetLLMConfig(ctx context.Context, realmID uuid.UUID) (*domain.RealmLLMConfig, error) {
	cfg := &domain.RealmLLMConfig{}
	err := s.db.QueryRow(ctx,
		`SELECT id, llm_accounts, COALESCE(default_llm_account_id, ''),
		        COALESCE(realm_context, ''), COALESCE(realm_holder_name, '')
		 FROM realms WHERE id = $1`,
		realmID,
	).Scan(&cfg.RealmID, &cfg.Accounts, &cfg.DefaultAccountID, &cfg.RealmContext, &cfg.RealmHolderName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cfg, nil
}
