// Package chat delivers messages between the two parties of a responded
// consultation. The relay owns an explicit, mutex-guarded registry of live
// sessions per user; it is transport-agnostic, the websocket layer adapts
// connections to the Session interface.
package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/model"
)

var (
	ErrForbidden           = errors.New("not a party of this consultation")
	ErrMissingConsultation = errors.New("consultation_id is required")
	ErrConsultationNotOpen = errors.New("no responded consultation links these users")
	ErrEmptyContent        = errors.New("content is required")
)

// Session is one live client connection. Send must be safe for concurrent
// use; a failed Send marks the session stale and it is pruned.
type Session interface {
	Send(v any) error
}

// Inbound is the wire format received from a client.
type Inbound struct {
	ReceiverID     string `json:"receiver_id"`
	Content        string `json:"content"`
	ConsultationID string `json:"consultation_id,omitempty"`
}

// Outbound is the wire format pushed to clients.
type Outbound struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	ConsultationID string    `json:"consultation_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Sender         Sender    `json:"sender"`
}

// Sender carries display fields for the message author.
type Sender struct {
	Username string `json:"username"`
}

type Store interface {
	store.ConsultationStore
	store.MessageStore
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Relay routes messages to every live session of the receiver.
type Relay struct {
	store Store

	mu       sync.Mutex
	sessions map[string][]Session // userID -> live sessions
}

func NewRelay(s Store) *Relay {
	return &Relay{
		store:    s,
		sessions: make(map[string][]Session),
	}
}

// Register adds a live session for a user. A user may hold several
// sessions at once (multiple tabs or devices).
func (r *Relay) Register(userID string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = append(r.sessions[userID], s)
}

// Unregister removes one session; the user's entry disappears with its
// last session.
func (r *Relay) Unregister(userID string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.sessions[userID][:0]
	for _, existing := range r.sessions[userID] {
		if existing != s {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(r.sessions, userID)
	} else {
		r.sessions[userID] = kept
	}
}

// Connections reports the number of live sessions for a user.
func (r *Relay) Connections(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions[userID])
}

// Send validates, persists and delivers one message. The returned error is
// meant to be echoed inline to the sender; the connection stays open.
func (r *Relay) Send(ctx context.Context, senderID string, in Inbound) (*Outbound, error) {
	if in.Content == "" {
		return nil, ErrEmptyContent
	}
	if in.ConsultationID == "" {
		return nil, ErrMissingConsultation
	}

	c, err := r.store.GetConsultation(ctx, in.ConsultationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConsultationNotOpen
	}
	if err != nil {
		return nil, err
	}
	if !linksParties(c, senderID, in.ReceiverID) || c.Status != model.ConsultationResponded {
		return nil, ErrConsultationNotOpen
	}

	msg := &model.Message{
		ID:             uuid.New().String(),
		SenderID:       senderID,
		ReceiverID:     in.ReceiverID,
		ConsultationID: in.ConsultationID,
		Content:        in.Content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	out := r.outbound(ctx, msg)
	r.deliver(in.ReceiverID, out)
	return out, nil
}

// History returns a consultation's messages, oldest first. Only the
// consultation's user or advisor may read them.
func (r *Relay) History(ctx context.Context, callerID, consultationID string) ([]*Outbound, error) {
	c, err := r.store.GetConsultation(ctx, consultationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if c.UserID != callerID && (c.AdvisorID == nil || *c.AdvisorID != callerID) {
		return nil, ErrForbidden
	}

	messages, err := r.store.ListMessagesByConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	out := make([]*Outbound, 0, len(messages))
	for _, m := range messages {
		out = append(out, r.outbound(ctx, m))
	}
	return out, nil
}

// deliver pushes to every live session of the receiver, pruning sessions
// whose send fails. Stale connections are only ever detected here, on the
// next send attempt. Sends run on a snapshot taken under the lock, so a
// session blocked on a dead connection cannot stall the registry.
func (r *Relay) deliver(receiverID string, out *Outbound) {
	r.mu.Lock()
	sessions := append([]Session(nil), r.sessions[receiverID]...)
	r.mu.Unlock()

	for _, s := range sessions {
		if err := s.Send(out); err != nil {
			log.Printf("[Relay] Dropping stale session for %s: %v", receiverID, err)
			r.Unregister(receiverID, s)
		}
	}
}

func (r *Relay) outbound(ctx context.Context, m *model.Message) *Outbound {
	out := &Outbound{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ConsultationID: m.ConsultationID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if u, err := r.store.GetUser(ctx, m.SenderID); err == nil {
		out.Sender.Username = u.Username
	}
	return out
}

// linksParties reports whether sender and receiver are exactly the user
// and advisor of the consultation, in either direction.
func linksParties(c *model.Consultation, senderID, receiverID string) bool {
	if c.AdvisorID == nil {
		return false
	}
	advisorID := *c.AdvisorID
	if c.UserID == senderID && advisorID == receiverID {
		return true
	}
	return c.UserID == receiverID && advisorID == senderID
}
