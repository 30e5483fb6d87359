package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SignalStore struct {
	db *pgxpool.Pool
}

func NewSignalStore(db *pgxpool.Pool) *SignalStore {
	return &SignalStore{db: db}
}

type columnKind int

const (
	jsonColumn columnKind = iota
	textColumn
	floatColumn
)

// Each analysis field is stored in the signals column of the same name.
func columnKindOf(field string) columnKind {
	switch field {
	case domain.FieldTitle, domain.FieldSummary:
		return textColumn
	case domain.FieldTemperature, domain.FieldDensity:
		return floatColumn
	}
	return jsonColumn
}

// columnValue converts a field value into a query argument for its column.
func columnValue(field string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch columnKindOf(field) {
	case textColumn:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string, got %T", field, v)
		}
		return s, nil
	case floatColumn:
		switch n := v.(type) {
		case *float64:
			if n == nil {
				return nil, nil
			}
			return *n, nil
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		}
		return nil, fmt.Errorf("%s: expected number, got %T", field, v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		return b, nil
	}
}

// scanTarget returns a destination for the field's column and a function
// reading the decoded value back out of it.
func scanTarget(field string) (any, func() (any, error)) {
	switch columnKindOf(field) {
	case textColumn:
		var s *string
		return &s, func() (any, error) {
			if s == nil {
				return nil, nil
			}
			return *s, nil
		}
	case floatColumn:
		var f *float64
		return &f, func() (any, error) { return f, nil }
	default:
		var raw []byte
		return &raw, func() (any, error) {
			if raw == nil {
				return nil, nil
			}
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("decode %s: %w", field, err)
			}
			return v, nil
		}
	}
}

func (s *SignalStore) Create(ctx context.Context, sig *domain.Signal) error {
	payload, err := json.Marshal(sig.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	annotations, err := json.Marshal(sig.Annotations)
	if err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}
	if sig.ID == uuid.Nil {
		sig.ID = uuid.New()
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO signals (id, realm_id, type, context, payload, annotations)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		 RETURNING created_at, updated_at`,
		sig.ID, sig.RealmID, sig.Type, sig.Context, payload, annotations,
	).Scan(&sig.CreatedAt, &sig.UpdatedAt)
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

// GetByID loads the signal, its analysis fields and its full history.
func (s *SignalStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Signal, error) {
	fields := domain.AllFields()

	sig := &domain.Signal{}
	dest := []any{&sig.ID, &sig.RealmID, &sig.Type, &sig.Context, &sig.Payload, &sig.Annotations}
	readers := make([]func() (any, error), len(fields))
	for i, f := range fields {
		target, read := scanTarget(f)
		dest = append(dest, target)
		readers[i] = read
	}
	dest = append(dest, &sig.CreatedAt, &sig.UpdatedAt)

	err := s.db.QueryRow(ctx,
		`SELECT id, realm_id, type, COALESCE(context, ''), payload, annotations, `+
			strings.Join(fields, ", ")+`, created_at, updated_at
		 FROM signals WHERE id = $1`,
		id,
	).Scan(dest...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sig.Fields = domain.FieldMap{}
	for i, f := range fields {
		v, err := readers[i]()
		if err != nil {
			return nil, err
		}
		if v != nil {
			sig.Fields[f] = v
		}
	}

	history, err := s.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	sig.History = history
	return sig, nil
}

// UpdateAnalysisFields writes all given fields in a single UPDATE. Only
// analysis field names are accepted as columns.
func (s *SignalStore) UpdateAnalysisFields(ctx context.Context, id uuid.UUID, fields domain.FieldMap) error {
	if len(fields) == 0 {
		return nil
	}
	if unknown := domain.UnknownFields(mapKeys(fields)); len(unknown) > 0 {
		return fmt.Errorf("unknown analysis fields: %s", strings.Join(unknown, ", "))
	}

	args := []any{id}
	sets := make([]string, 0, len(fields)+1)
	for _, name := range fields.Keys() {
		v, err := columnValue(name, fields[name])
		if err != nil {
			return err
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	tag, err := s.db.Exec(ctx,
		`UPDATE signals SET `+strings.Join(sets, ", ")+` WHERE id = $1`,
		args...,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SignalStore) AppendHistory(ctx context.Context, id uuid.UUID, entry domain.HistoryEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO signal_history (signal_id, entry_type, entry, created_at)
		 VALUES ($1, $2, $3, $4)`,
		id, entry.Type, b, entry.Timestamp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ListHistory returns the signal's history entries in append order.
func (s *SignalStore) ListHistory(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT entry FROM signal_history WHERE signal_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

func mapKeys(m domain.FieldMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
