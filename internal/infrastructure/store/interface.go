package store

import (
	"context"
	"errors"

	"github.com/example/automarket/internal/model"
)

// Sentinel errors shared by the Postgres store and the in-memory mock.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateInvoice  = errors.New("duplicate invoice number")
	ErrDuplicateEmail    = errors.New("email already registered")
)

// CheckoutItem is one requested line of a checkout.
type CheckoutItem struct {
	AccessoryID string `json:"accessory_id"`
	Quantity    int    `json:"quantity"`
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	ListAdvisors(ctx context.Context) ([]*model.User, error)
}

// CatalogStore persists accessories and cars.
type CatalogStore interface {
	CreateAccessory(ctx context.Context, a *model.Accessory) error
	GetAccessory(ctx context.Context, id string) (*model.Accessory, error)
	UpdateAccessory(ctx context.Context, a *model.Accessory) error
	SoftDeleteAccessory(ctx context.Context, id string) error
	ListAccessories(ctx context.Context, includeUnpublished bool) ([]*model.Accessory, error)

	CreateCar(ctx context.Context, c *model.Car) error
	GetCar(ctx context.Context, id string) (*model.Car, error)
	UpdateCar(ctx context.Context, c *model.Car) error
	SoftDeleteCar(ctx context.Context, id string) error
	ListCars(ctx context.Context, includeUnpublished bool) ([]*model.Car, error)
}

// InventoryStore mutates accessory stock. Both operations are single
// conditional updates so concurrent callers cannot drive stock negative.
type InventoryStore interface {
	// ReserveStock decrements stock by qty and returns the new level.
	// Returns ErrNotFound for a missing or deleted accessory and
	// ErrInsufficientStock when fewer than qty units remain.
	ReserveStock(ctx context.Context, accessoryID string, qty int) (int, error)
	// ReleaseStock increments stock by qty and returns the new level.
	ReleaseStock(ctx context.Context, accessoryID string, qty int) (int, error)
}

// CartStore persists cart lines.
type CartStore interface {
	GetCartLine(ctx context.Context, userID, accessoryID string) (*model.CartLine, error)
	UpsertCartLine(ctx context.Context, userID, accessoryID string, qty int) (*model.CartLine, error)
	DeleteCartLine(ctx context.Context, userID, accessoryID string) error
	ListCartLines(ctx context.Context, userID string) ([]*model.CartLine, error)
}

// PurchaseStore persists purchases.
type PurchaseStore interface {
	// CreatePurchase commits a whole checkout atomically: every line is a
	// conditional stock decrement reading the live price, and the purchase
	// plus its item snapshots are inserted in the same transaction. The
	// first shortfall aborts everything with ErrInsufficientStock; a missing
	// accessory aborts with ErrNotFound; an invoice-number collision aborts
	// with ErrDuplicateInvoice. Cart lines for the purchased accessories are
	// cleared as part of the transaction.
	CreatePurchase(ctx context.Context, userID, invoiceNumber string, items []CheckoutItem) (*model.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*model.Purchase, error)
	ListPurchasesByUser(ctx context.Context, userID string) ([]*model.Purchase, error)
}

// ConsultationStore persists consultations.
type ConsultationStore interface {
	CreateConsultation(ctx context.Context, c *model.Consultation) error
	GetConsultation(ctx context.Context, id string) (*model.Consultation, error)
	UpdateConsultation(ctx context.Context, c *model.Consultation) error
	ListConsultationsByUser(ctx context.Context, userID string) ([]*model.Consultation, error)
	ListConsultationsByAdvisor(ctx context.Context, advisorID string) ([]*model.Consultation, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *model.Message) error
	ListMessagesByConsultation(ctx context.Context, consultationID string) ([]*model.Message, error)
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string) ([]*model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	CatalogStore
	InventoryStore
	CartStore
	PurchaseStore
	ConsultationStore
	MessageStore
	NotificationStore
}
