// Package cart is the ledger of per-user stock reservations. A cart line's
// quantity is always mirrored by an equal debit from the accessory's stock;
// removing the line restores exactly that debit.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/inventory"
	"github.com/example/automarket/internal/model"
)

var (
	ErrItemNotFound = errors.New("cart item not found")
)

// Line is a cart line joined with its accessory for presentation.
type Line struct {
	model.CartLine
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

type Store interface {
	store.CartStore
	GetAccessory(ctx context.Context, id string) (*model.Accessory, error)
}

type Service struct {
	store     Store
	inventory *inventory.Service
}

func NewService(s Store, inv *inventory.Service) *Service {
	return &Service{store: s, inventory: inv}
}

// AddItem reserves qty more units and creates the (user, accessory) line,
// or increments an existing one. The reservation happens first; if the
// line write then fails, the reservation is released again.
func (s *Service) AddItem(ctx context.Context, userID, accessoryID string, qty int) (*model.CartLine, error) {
	if _, err := s.inventory.Reserve(ctx, accessoryID, qty); err != nil {
		return nil, err
	}

	line, err := s.store.UpsertCartLine(ctx, userID, accessoryID, qty)
	if err != nil {
		if _, releaseErr := s.inventory.Release(ctx, accessoryID, qty); releaseErr != nil {
			log.Printf("[Cart] Failed to release %d units of %s after line write error: %v",
				qty, accessoryID, releaseErr)
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return line, nil
}

// RemoveItem deletes the line and restores its full reserved quantity.
func (s *Service) RemoveItem(ctx context.Context, userID, accessoryID string) error {
	line, err := s.store.GetCartLine(ctx, userID, accessoryID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}

	if err := s.store.DeleteCartLine(ctx, userID, accessoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrItemNotFound
		}
		return err
	}

	if _, err := s.inventory.Release(ctx, accessoryID, line.Quantity); err != nil {
		log.Printf("[Cart] Failed to restore %d units of %s after removal: %v",
			line.Quantity, accessoryID, err)
	}
	return nil
}

// Items returns the user's cart lines with accessory name and pricing.
func (s *Service) Items(ctx context.Context, userID string) ([]Line, error) {
	lines, err := s.store.ListCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]Line, 0, len(lines))
	for _, l := range lines {
		item := Line{CartLine: *l}
		if a, err := s.store.GetAccessory(ctx, l.AccessoryID); err == nil {
			item.Name = a.Name
			item.Price = a.Price
			item.Subtotal = a.Price * float64(l.Quantity)
		}
		items = append(items, item)
	}
	return items, nil
}
