package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/store"
	"github.com/google/uuid"
)

type SignalService struct {
	store domain.SignalStore
}

func NewSignalService(s domain.SignalStore) *SignalService {
	return &SignalService{store: s}
}

func (s *SignalService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Signal, error) {
	sig, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSignalNotFound
		}
		return nil, err
	}
	return sig, nil
}
