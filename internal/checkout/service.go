// Package checkout converts a list of requested lines into a committed
// purchase. Stock is re-validated at checkout time inside a single
// transaction, prices are snapshotted per line, and the whole operation
// commits or rolls back as one unit.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/events"
	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/model"
)

var (
	ErrEmptyCheckout     = errors.New("checkout requires at least one item")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrAccessoryNotFound = errors.New("accessory not found")
	ErrInsufficientStock = store.ErrInsufficientStock
	ErrNotFound          = errors.New("purchase not found")
	ErrForbidden         = errors.New("not your purchase")
)

// invoiceAttempts bounds retries on an invoice-number collision. With a
// random 6-hex suffix a collision is practically unreachable, but the
// unique constraint still has to be handled.
const invoiceAttempts = 3

type Service struct {
	store     store.PurchaseStore
	publisher events.Publisher
}

func NewService(s store.PurchaseStore, pub events.Publisher) *Service {
	return &Service{store: s, publisher: pub}
}

// Checkout commits the given lines as one purchase.
func (s *Service) Checkout(ctx context.Context, userID string, items []store.CheckoutItem) (*model.Purchase, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCheckout
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	var purchase *model.Purchase
	for attempt := 0; attempt < invoiceAttempts; attempt++ {
		p, err := s.store.CreatePurchase(ctx, userID, NewInvoiceNumber(), items)
		if errors.Is(err, store.ErrDuplicateInvoice) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccessoryNotFound
		}
		if err != nil {
			return nil, err
		}
		purchase = p
		break
	}
	if purchase == nil {
		return nil, store.ErrDuplicateInvoice
	}

	s.publishCompleted(ctx, purchase)
	return purchase, nil
}

// Purchases returns the user's purchase history, newest first.
func (s *Service) Purchases(ctx context.Context, userID string) ([]*model.Purchase, error) {
	return s.store.ListPurchasesByUser(ctx, userID)
}

// Purchase returns one purchase. Only the owner (or an admin) may read it.
func (s *Service) Purchase(ctx context.Context, callerID string, isAdmin bool, purchaseID string) (*model.Purchase, error) {
	p, err := s.store.GetPurchase(ctx, purchaseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != callerID && !isAdmin {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) publishCompleted(ctx context.Context, p *model.Purchase) {
	if s.publisher == nil {
		return
	}
	payload := events.PurchaseCompleted{
		PurchaseID:    p.ID,
		UserID:        p.UserID,
		InvoiceNumber: p.InvoiceNumber,
		Total:         p.TotalAmount,
	}
	for _, item := range p.Items {
		payload.Items = append(payload.Items, events.PurchaseItem{
			AccessoryID:   item.AccessoryID,
			AccessoryName: item.AccessoryName,
			Quantity:      item.Quantity,
			Price:         item.PriceAtPurchase,
		})
	}
	env, err := events.Wrap(events.TypePurchaseCompleted, payload)
	if err != nil {
		log.Printf("[Checkout] Failed to wrap purchase event for %s: %v", p.ID, err)
		return
	}
	// Best-effort: the purchase is already committed, a lost event only
	// delays the confirmation email.
	if err := s.publisher.Publish(ctx, p.UserID, env); err != nil {
		log.Printf("[Checkout] Failed to publish purchase event for %s: %v", p.ID, err)
	}
}

// NewInvoiceNumber returns an invoice number like INV-20260828-3FA2B1:
// a date prefix plus six upper-case hex characters.
func NewInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("INV-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
