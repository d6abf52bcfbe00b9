// Package consultation tracks a user inquiry from creation through advisor
// assignment to response. A consultation is pending until its advisor
// responds; responding stamps answered_at and notifies the requester.
package consultation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/events"
	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/model"
)

var (
	ErrNotFound      = errors.New("consultation not found")
	ErrNotAuthorized = errors.New("only the assigned advisor may respond")
	ErrNotAdvisor    = errors.New("assignee is not an advisor")
	ErrEmptyMessage  = errors.New("message is required")
)

type Store interface {
	store.ConsultationStore
	store.NotificationStore
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListAdvisors(ctx context.Context) ([]*model.User, error)
}

type Service struct {
	store      Store
	assignment AssignmentStrategy
	publisher  events.Publisher
}

func NewService(s Store, assignment AssignmentStrategy, pub events.Publisher) *Service {
	return &Service{store: s, assignment: assignment, publisher: pub}
}

// Create opens a pending consultation. The advisor, if any, is chosen by
// the configured assignment strategy.
func (s *Service) Create(ctx context.Context, userID, subject, message string) (*model.Consultation, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}

	now := time.Now().UTC()
	c := &model.Consultation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Subject:   subject,
		Message:   message,
		Status:    model.ConsultationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	advisorID, assigned, err := s.assignment.Assign(ctx)
	if err != nil {
		return nil, err
	}
	if assigned {
		c.AdvisorID = &advisorID
	}

	if err := s.store.CreateConsultation(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Assign routes a consultation to an advisor (manual-assignment mode).
func (s *Service) Assign(ctx context.Context, consultationID, advisorID string) (*model.Consultation, error) {
	c, err := s.store.GetConsultation(ctx, consultationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	advisor, err := s.store.GetUser(ctx, advisorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotAdvisor
	}
	if err != nil {
		return nil, err
	}
	if advisor.Role != model.RoleAdvisor {
		return nil, ErrNotAdvisor
	}

	c.AdvisorID = &advisorID
	c.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateConsultation(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Respond transitions pending -> responded. Only the assigned advisor may
// respond; an unassigned consultation is claimed by the responder. The
// source allows re-responding, so a responded consultation is restamped
// rather than rejected. revisedMessage, when non-nil, replaces the
// consultation text.
func (s *Service) Respond(ctx context.Context, advisorID, consultationID string, revisedMessage *string) (*model.Consultation, error) {
	c, err := s.store.GetConsultation(ctx, consultationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if c.AdvisorID == nil {
		c.AdvisorID = &advisorID
	} else if *c.AdvisorID != advisorID {
		return nil, ErrNotAuthorized
	}

	now := time.Now().UTC()
	c.Status = model.ConsultationResponded
	c.AnsweredAt = &now
	c.UpdatedAt = now
	if revisedMessage != nil {
		c.Message = *revisedMessage
	}

	if err := s.store.UpdateConsultation(ctx, c); err != nil {
		return nil, err
	}

	s.notifyResponded(ctx, c)
	return c, nil
}

// Get returns a consultation visible to its user, its advisor, or an admin.
func (s *Service) Get(ctx context.Context, callerID string, isAdmin bool, consultationID string) (*model.Consultation, error) {
	c, err := s.store.GetConsultation(ctx, consultationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.UserID != callerID && !isAdmin && (c.AdvisorID == nil || *c.AdvisorID != callerID) {
		return nil, ErrNotAuthorized
	}
	return c, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*model.Consultation, error) {
	return s.store.ListConsultationsByUser(ctx, userID)
}

func (s *Service) ListForAdvisor(ctx context.Context, advisorID string) ([]*model.Consultation, error) {
	return s.store.ListConsultationsByAdvisor(ctx, advisorID)
}

// notifyResponded records the in-app notification and publishes the domain
// event that drives the email notifier. Both are best-effort: the state
// transition has already committed.
func (s *Service) notifyResponded(ctx context.Context, c *model.Consultation) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    c.UserID,
		Title:     "Consultation answered",
		Message:   "An advisor has responded to your consultation. Open the chat to continue the conversation.",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		log.Printf("[Consultation] Failed to create notification for %s: %v", c.UserID, err)
	}

	if s.publisher == nil {
		return
	}
	env, err := events.Wrap(events.TypeConsultationResponded, events.ConsultationResponded{
		ConsultationID: c.ID,
		UserID:         c.UserID,
		AdvisorID:      *c.AdvisorID,
		Subject:        c.Subject,
	})
	if err != nil {
		log.Printf("[Consultation] Failed to wrap responded event for %s: %v", c.ID, err)
		return
	}
	if err := s.publisher.Publish(ctx, c.UserID, env); err != nil {
		log.Printf("[Consultation] Failed to publish responded event for %s: %v", c.ID, err)
	}
}
