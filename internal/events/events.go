package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried on the domain topic.
const (
	TypePurchaseCompleted     = "purchase.completed"
	TypeConsultationResponded = "consultation.responded"
)

// Publisher sends a domain event keyed for partition ordering.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Envelope wraps an event payload for the wire.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Wrap builds an envelope around a payload.
func Wrap(eventType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

// PurchaseItem is one line of a completed purchase.
type PurchaseItem struct {
	AccessoryID   string  `json:"accessory_id"`
	AccessoryName string  `json:"accessory_name,omitempty"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
}

// PurchaseCompleted is emitted after a checkout commits.
type PurchaseCompleted struct {
	PurchaseID    string         `json:"purchase_id"`
	UserID        string         `json:"user_id"`
	InvoiceNumber string         `json:"invoice_number"`
	Total         float64        `json:"total"`
	Items         []PurchaseItem `json:"items"`
}

// ConsultationResponded is emitted when an advisor answers a consultation.
type ConsultationResponded struct {
	ConsultationID string `json:"consultation_id"`
	UserID         string `json:"user_id"`
	AdvisorID      string `json:"advisor_id"`
	Subject        string `json:"subject,omitempty"`
}
