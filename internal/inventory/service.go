// Package inventory guards accessory stock levels. All mutations go
// through conditional updates in the store, so stock can never be driven
// below zero even under concurrent reservations.
package inventory

import (
	"context"
	"errors"

	"github.com/example/automarket/internal/infrastructure/store"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrAccessoryNotFound = errors.New("accessory not found")
	ErrInsufficientStock = store.ErrInsufficientStock
)

type Service struct {
	store store.InventoryStore
}

func NewService(s store.InventoryStore) *Service {
	return &Service{store: s}
}

// Reserve debits qty units of stock and returns the new level.
func (s *Service) Reserve(ctx context.Context, accessoryID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	level, err := s.store.ReserveStock(ctx, accessoryID, qty)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrAccessoryNotFound
	}
	return level, err
}

// Release credits qty units back. There is no upper bound: callers only
// ever return what they reserved.
func (s *Service) Release(ctx context.Context, accessoryID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	level, err := s.store.ReleaseStock(ctx, accessoryID, qty)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrAccessoryNotFound
	}
	return level, err
}
