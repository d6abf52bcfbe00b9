// Package mocks provides an in-memory Store implementation for unit tests.
// It mirrors the Postgres store's semantics, including the conditional
// stock decrement and all-or-nothing checkout.
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/model"
)

type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*model.User
	accessories   map[string]*model.Accessory
	cars          map[string]*model.Car
	cartLines     map[string]*model.CartLine // key: userID + "/" + accessoryID
	purchases     map[string]*model.Purchase
	invoices      map[string]bool
	consultations map[string]*model.Consultation
	messages      []*model.Message
	notifications map[string]*model.Notification
}

var _ store.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*model.User),
		accessories:   make(map[string]*model.Accessory),
		cars:          make(map[string]*model.Car),
		cartLines:     make(map[string]*model.CartLine),
		purchases:     make(map[string]*model.Purchase),
		invoices:      make(map[string]bool),
		consultations: make(map[string]*model.Consultation),
		notifications: make(map[string]*model.Notification),
	}
}

// Users

func (m *MemoryStore) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return store.ErrDuplicateEmail
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemoryStore) UpdateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) ListAdvisors(ctx context.Context) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var advisors []*model.User
	for _, u := range m.users {
		if u.Role == model.RoleAdvisor && u.IsActive {
			cp := *u
			advisors = append(advisors, &cp)
		}
	}
	sort.Slice(advisors, func(i, j int) bool {
		return advisors[i].CreatedAt.Before(advisors[j].CreatedAt)
	})
	return advisors, nil
}

// Accessories

func (m *MemoryStore) CreateAccessory(ctx context.Context, a *model.Accessory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accessories[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetAccessory(ctx context.Context, id string) (*model.Accessory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accessories[id]
	if !ok || a.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) UpdateAccessory(ctx context.Context, a *model.Accessory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.accessories[a.ID]
	if !ok || existing.DeletedAt != nil {
		return store.ErrNotFound
	}
	cp := *a
	cp.UpdatedAt = time.Now().UTC()
	m.accessories[a.ID] = &cp
	return nil
}

func (m *MemoryStore) SoftDeleteAccessory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accessories[id]
	if !ok || a.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	a.DeletedAt = &now
	return nil
}

func (m *MemoryStore) ListAccessories(ctx context.Context, includeUnpublished bool) ([]*model.Accessory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accessories []*model.Accessory
	for _, a := range m.accessories {
		if a.DeletedAt != nil {
			continue
		}
		if !includeUnpublished && !a.IsPublished {
			continue
		}
		cp := *a
		accessories = append(accessories, &cp)
	}
	sort.Slice(accessories, func(i, j int) bool {
		return accessories[i].CreatedAt.After(accessories[j].CreatedAt)
	})
	return accessories, nil
}

// Cars

func (m *MemoryStore) CreateCar(ctx context.Context, c *model.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.cars[c.ID] = &cp
	return nil
}

func (m *MemoryStore) GetCar(ctx context.Context, id string) (*model.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cars[id]
	if !ok || c.DeletedAt != nil {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) UpdateCar(ctx context.Context, c *model.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.cars[c.ID]
	if !ok || existing.DeletedAt != nil {
		return store.ErrNotFound
	}
	cp := *c
	cp.UpdatedAt = time.Now().UTC()
	m.cars[c.ID] = &cp
	return nil
}

func (m *MemoryStore) SoftDeleteCar(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cars[id]
	if !ok || c.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	c.DeletedAt = &now
	return nil
}

func (m *MemoryStore) ListCars(ctx context.Context, includeUnpublished bool) ([]*model.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cars []*model.Car
	for _, c := range m.cars {
		if c.DeletedAt != nil {
			continue
		}
		if !includeUnpublished && !c.IsPublished {
			continue
		}
		cp := *c
		cars = append(cars, &cp)
	}
	sort.Slice(cars, func(i, j int) bool {
		return cars[i].CreatedAt.After(cars[j].CreatedAt)
	})
	return cars, nil
}

// Inventory

func (m *MemoryStore) ReserveStock(ctx context.Context, accessoryID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserveLocked(accessoryID, qty)
}

func (m *MemoryStore) reserveLocked(accessoryID string, qty int) (int, error) {
	a, ok := m.accessories[accessoryID]
	if !ok || a.DeletedAt != nil {
		return 0, store.ErrNotFound
	}
	if a.Stock < qty {
		return 0, store.ErrInsufficientStock
	}
	a.Stock -= qty
	return a.Stock, nil
}

func (m *MemoryStore) ReleaseStock(ctx context.Context, accessoryID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accessories[accessoryID]
	if !ok || a.DeletedAt != nil {
		return 0, store.ErrNotFound
	}
	a.Stock += qty
	return a.Stock, nil
}

// Cart

func cartKey(userID, accessoryID string) string {
	return userID + "/" + accessoryID
}

// reservedQuantity is the stock a user's cart line holds for an accessory.
// Callers must hold m.mu.
func (m *MemoryStore) reservedQuantity(userID, accessoryID string) int {
	if line, ok := m.cartLines[cartKey(userID, accessoryID)]; ok {
		return line.Quantity
	}
	return 0
}

func (m *MemoryStore) GetCartLine(ctx context.Context, userID, accessoryID string) (*model.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	line, ok := m.cartLines[cartKey(userID, accessoryID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *line
	return &cp, nil
}

func (m *MemoryStore) UpsertCartLine(ctx context.Context, userID, accessoryID string, qty int) (*model.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cartKey(userID, accessoryID)
	if line, ok := m.cartLines[key]; ok {
		line.Quantity += qty
		cp := *line
		return &cp, nil
	}
	line := &model.CartLine{
		ID:          uuid.New().String(),
		UserID:      userID,
		AccessoryID: accessoryID,
		Quantity:    qty,
		AddedAt:     time.Now().UTC(),
	}
	m.cartLines[key] = line
	cp := *line
	return &cp, nil
}

func (m *MemoryStore) DeleteCartLine(ctx context.Context, userID, accessoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cartKey(userID, accessoryID)
	if _, ok := m.cartLines[key]; !ok {
		return store.ErrNotFound
	}
	delete(m.cartLines, key)
	return nil
}

func (m *MemoryStore) ListCartLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lines []*model.CartLine
	for _, line := range m.cartLines {
		if line.UserID == userID {
			cp := *line
			lines = append(lines, &cp)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].AddedAt.Before(lines[j].AddedAt)
	})
	return lines, nil
}

// Purchases

func (m *MemoryStore) CreatePurchase(ctx context.Context, userID, invoiceNumber string, items []store.CheckoutItem) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.invoices[invoiceNumber] {
		return nil, store.ErrDuplicateInvoice
	}

	// Validate every line before mutating anything so a mid-list
	// shortfall leaves all stock untouched. A carted accessory holds a
	// stock reservation equal to its line quantity, which counts toward
	// the available units.
	for _, item := range items {
		a, ok := m.accessories[item.AccessoryID]
		if !ok || a.DeletedAt != nil {
			return nil, store.ErrNotFound
		}
		if a.Stock+m.reservedQuantity(userID, item.AccessoryID) < item.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	purchase := &model.Purchase{
		ID:            uuid.New().String(),
		UserID:        userID,
		InvoiceNumber: invoiceNumber,
		CreatedAt:     time.Now().UTC(),
	}
	for _, item := range items {
		a := m.accessories[item.AccessoryID]
		// Consuming the cart line releases its reservation, so the net
		// debit per unit purchased is exactly one.
		a.Stock += m.reservedQuantity(userID, item.AccessoryID) - item.Quantity
		purchase.Items = append(purchase.Items, model.PurchaseItem{
			ID:              uuid.New().String(),
			PurchaseID:      purchase.ID,
			AccessoryID:     item.AccessoryID,
			AccessoryName:   a.Name,
			Quantity:        item.Quantity,
			PriceAtPurchase: a.Price,
		})
		purchase.TotalAmount += a.Price * float64(item.Quantity)
		delete(m.cartLines, cartKey(userID, item.AccessoryID))
	}

	m.invoices[invoiceNumber] = true
	m.purchases[purchase.ID] = purchase
	cp := *purchase
	return &cp, nil
}

func (m *MemoryStore) GetPurchase(ctx context.Context, id string) (*model.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListPurchasesByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var purchases []*model.Purchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			cp := *p
			purchases = append(purchases, &cp)
		}
	}
	sort.Slice(purchases, func(i, j int) bool {
		return purchases[i].CreatedAt.After(purchases[j].CreatedAt)
	})
	return purchases, nil
}

// Consultations

func (m *MemoryStore) CreateConsultation(ctx context.Context, c *model.Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.consultations[c.ID] = &cp
	return nil
}

func (m *MemoryStore) GetConsultation(ctx context.Context, id string) (*model.Consultation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.consultations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) UpdateConsultation(ctx context.Context, c *model.Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.consultations[c.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *c
	m.consultations[c.ID] = &cp
	return nil
}

func (m *MemoryStore) ListConsultationsByUser(ctx context.Context, userID string) ([]*model.Consultation, error) {
	return m.listConsultations(func(c *model.Consultation) bool { return c.UserID == userID })
}

func (m *MemoryStore) ListConsultationsByAdvisor(ctx context.Context, advisorID string) ([]*model.Consultation, error) {
	return m.listConsultations(func(c *model.Consultation) bool {
		return c.AdvisorID != nil && *c.AdvisorID == advisorID
	})
}

func (m *MemoryStore) listConsultations(match func(*model.Consultation) bool) ([]*model.Consultation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var consultations []*model.Consultation
	for _, c := range m.consultations {
		if match(c) {
			cp := *c
			consultations = append(consultations, &cp)
		}
	}
	sort.Slice(consultations, func(i, j int) bool {
		return consultations[i].CreatedAt.After(consultations[j].CreatedAt)
	})
	return consultations, nil
}

// Messages

func (m *MemoryStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *MemoryStore) ListMessagesByConsultation(ctx context.Context, consultationID string) ([]*model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var messages []*model.Message
	for _, msg := range m.messages {
		if msg.ConsultationID == consultationID {
			cp := *msg
			messages = append(messages, &cp)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// Notifications

func (m *MemoryStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *MemoryStore) ListNotificationsByUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var notifications []*model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			cp := *n
			notifications = append(notifications, &cp)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (m *MemoryStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (m *MemoryStore) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
