package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReflectionStore struct {
	db *pgxpool.Pool
}

func NewReflectionStore(db *pgxpool.Pool) *ReflectionStore {
	return &ReflectionStore{db: db}
}

func (s *ReflectionStore) Create(ctx context.Context, r *domain.Reflection) error {
	history, err := json.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("encode reflection history: %w", err)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO reflections (id, signal_id, realm_id, type, source, content, history, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		 RETURNING created_at`,
		r.ID, r.SignalID, r.RealmID, string(r.Type), r.Source, r.Content, history, nullTime(r.CreatedAt),
	).Scan(&r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return ErrConflict
			case pgForeignKeyViolation:
				return ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *ReflectionStore) ListBySignal(ctx context.Context, signalID uuid.UUID) ([]domain.Reflection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, signal_id, realm_id, type, source, content, history, created_at
		 FROM reflections WHERE signal_id = $1
		 ORDER BY created_at, id`,
		signalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reflection
	for rows.Next() {
		var r domain.Reflection
		var rt string
		if err := rows.Scan(&r.ID, &r.SignalID, &r.RealmID, &rt, &r.Source, &r.Content, &r.History, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Type = domain.ReflectionType(rt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
