// Package notification turns domain events into outbound emails. It runs
// in the notifier process, consuming the domain topic.
package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/automarket/internal/email"
	"github.com/example/automarket/internal/events"
	"github.com/example/automarket/internal/infrastructure/store"
)

// Handler processes events for sending notifications
type Handler struct {
	emailService *email.Service
	users        store.UserStore
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service, users store.UserStore) *Handler {
	return &Handler{
		emailService: emailSvc,
		users:        users,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch env.Type {
	case events.TypePurchaseCompleted:
		return h.handlePurchaseCompleted(ctx, env)
	case events.TypeConsultationResponded:
		return h.handleConsultationResponded(ctx, env)
	}
	return nil
}

func (h *Handler) handlePurchaseCompleted(ctx context.Context, env events.Envelope) error {
	var e events.PurchaseCompleted
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal PurchaseCompleted event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing PurchaseCompleted event for purchase %s, user %s", e.PurchaseID, e.UserID)

	user, err := h.users.GetUser(ctx, e.UserID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", e.UserID, err)
		return nil
	}

	emailItems := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		emailItems[i] = email.OrderItem{
			AccessoryID: item.AccessoryID,
			Name:        item.AccessoryName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	if err := h.emailService.SendOrderConfirmation(user.Email, e.InvoiceNumber, e.Total, emailItems); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", user.Email, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation email sent to %s for invoice %s", user.Email, e.InvoiceNumber)
	return nil
}

func (h *Handler) handleConsultationResponded(ctx context.Context, env events.Envelope) error {
	var e events.ConsultationResponded
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal ConsultationResponded event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing ConsultationResponded event for consultation %s", e.ConsultationID)

	user, err := h.users.GetUser(ctx, e.UserID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", e.UserID, err)
		return nil
	}

	if err := h.emailService.SendConsultationResponded(user.Email, user.Username, e.Subject); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", user.Email, err)
		return err
	}

	log.Printf("[Notifier] Consultation-answered email sent to %s", user.Email)
	return nil
}
