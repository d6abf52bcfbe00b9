package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/automarket/internal/events"
	"github.com/example/automarket/internal/infrastructure/store/mocks"
	"github.com/example/automarket/internal/model"
)

func seedUsers(t *testing.T, memStore *mocks.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC()
	users := []*model.User{
		{ID: "user-1", Username: "alice", Email: "alice@example.com", Role: model.RoleUser, IsActive: true, CreatedAt: base},
		{ID: "advisor-1", Username: "carol", Email: "carol@example.com", Role: model.RoleAdvisor, IsActive: true, CreatedAt: base.Add(time.Second)},
		{ID: "advisor-2", Username: "dave", Email: "dave@example.com", Role: model.RoleAdvisor, IsActive: true, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, u := range users {
		require.NoError(t, memStore.CreateUser(ctx, u))
	}
}

func newAutoService(t *testing.T) (*Service, *mocks.MemoryStore, *mocks.MockPublisher) {
	t.Helper()
	memStore := mocks.NewMemoryStore()
	seedUsers(t, memStore)
	publisher := mocks.NewMockPublisher()
	svc := NewService(memStore, AutoAssignment{Store: memStore}, publisher)
	return svc, memStore, publisher
}

func newManualService(t *testing.T) (*Service, *mocks.MemoryStore, *mocks.MockPublisher) {
	t.Helper()
	memStore := mocks.NewMemoryStore()
	seedUsers(t, memStore)
	publisher := mocks.NewMockPublisher()
	svc := NewService(memStore, ManualAssignment{}, publisher)
	return svc, memStore, publisher
}

// ============================================
// Create / Assignment Tests
// ============================================

func TestService_Create_AutoAssignsFirstAdvisor(t *testing.T) {
	svc, _, _ := newAutoService(t)

	c, err := svc.Create(context.Background(), "user-1", "Engine noise", "My car makes a ticking noise.")

	require.NoError(t, err)
	assert.Equal(t, model.ConsultationPending, c.Status)
	require.NotNil(t, c.AdvisorID)
	assert.Equal(t, "advisor-1", *c.AdvisorID) // oldest advisor account
	assert.Nil(t, c.AnsweredAt)
}

func TestService_Create_ManualLeavesUnassigned(t *testing.T) {
	svc, _, _ := newManualService(t)

	c, err := svc.Create(context.Background(), "user-1", "Brakes", "Which pads fit a 2019 hatchback?")

	require.NoError(t, err)
	assert.Equal(t, model.ConsultationPending, c.Status)
	assert.Nil(t, c.AdvisorID)
}

func TestService_Create_EmptyMessage(t *testing.T) {
	svc, _, _ := newAutoService(t)

	c, err := svc.Create(context.Background(), "user-1", "Subject", "")

	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Nil(t, c)
}

func TestService_Create_AutoWithNoAdvisors(t *testing.T) {
	memStore := mocks.NewMemoryStore()
	require.NoError(t, memStore.CreateUser(context.Background(), &model.User{
		ID: "user-1", Username: "alice", Email: "alice@example.com",
		Role: model.RoleUser, IsActive: true, CreatedAt: time.Now().UTC(),
	}))
	svc := NewService(memStore, AutoAssignment{Store: memStore}, nil)

	c, err := svc.Create(context.Background(), "user-1", "Help", "No advisors registered yet.")

	require.NoError(t, err)
	assert.Nil(t, c.AdvisorID)
}

func TestNewAssignmentStrategy_ModeSelection(t *testing.T) {
	memStore := mocks.NewMemoryStore()

	assert.IsType(t, ManualAssignment{}, NewAssignmentStrategy("manual", memStore))
	assert.IsType(t, AutoAssignment{}, NewAssignmentStrategy("auto", memStore))
	assert.IsType(t, AutoAssignment{}, NewAssignmentStrategy("", memStore))
}

// ============================================
// Assign Tests
// ============================================

func TestService_Assign_Success(t *testing.T) {
	svc, _, _ := newManualService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", "Tires", "Winter tire advice needed.")
	require.NoError(t, err)

	assigned, err := svc.Assign(ctx, c.ID, "advisor-2")

	require.NoError(t, err)
	require.NotNil(t, assigned.AdvisorID)
	assert.Equal(t, "advisor-2", *assigned.AdvisorID)
}

func TestService_Assign_NotAnAdvisor(t *testing.T) {
	svc, _, _ := newManualService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", "Tires", "Winter tire advice needed.")
	require.NoError(t, err)

	_, err = svc.Assign(ctx, c.ID, "user-1")
	assert.ErrorIs(t, err, ErrNotAdvisor)

	_, err = svc.Assign(ctx, c.ID, "no-such-user")
	assert.ErrorIs(t, err, ErrNotAdvisor)
}

func TestService_Assign_UnknownConsultation(t *testing.T) {
	svc, _, _ := newManualService(t)

	_, err := svc.Assign(context.Background(), "no-such-consultation", "advisor-1")

	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Respond Tests
// ============================================

func TestService_Respond_Success(t *testing.T) {
	svc, memStore, publisher := newAutoService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", "Engine noise", "My car makes a ticking noise.")
	require.NoError(t, err)

	responded, err := svc.Respond(ctx, "advisor-1", c.ID, nil)

	require.NoError(t, err)
	assert.Equal(t, model.ConsultationResponded, responded.Status)
	require.NotNil(t, responded.AnsweredAt)
	assert.False(t, responded.AnsweredAt.Before(responded.CreatedAt))

	// The requester gets an in-app notification
	notifications, err := memStore.ListNotificationsByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.False(t, notifications[0].IsRead)

	// And the responded event goes out for the email notifier
	require.Len(t, publisher.Published, 1)
	env, ok := publisher.Published[0].Event.(events.Envelope)
	require.True(t, ok)
	assert.Equal(t, events.TypeConsultationResponded, env.Type)
}

func TestService_Respond_WrongAdvisor(t *testing.T) {
	svc, _, _ := newAutoService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", "Engine noise", "My car makes a ticking noise.")
	require.NoError(t, err)

	_, err = svc.Respond(ctx, "advisor-2", c.ID, nil)

	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestService_Respond_ClaimsUnassigned(t *testing.T) {
	svc, _, _ := newManualService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", "Brakes", "Which pads fit a 2019 hatchback?")
	require.NoError(t, err)
	require.Nil(t, c.AdvisorID)

	responded, err := svc.Respond(ctx, "advisor-2", c.ID, nil)

	require.NoError(t, err)
	require.NotNil(t, responded.AdvisorID)
	assert.Equal(t, "advisor-2", *responded.AdvisorID)
	assert.Equal(t, model.ConsultationResponded, responded.Status)
}

func TestService_Respond_RevisesMessage(t *testing.T) {
	svc, _, _ := newAutoService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", "Engine noise", "Original text.")
	require.NoError(t, err)

	revised := "Original text. [Edited by advisor for clarity]"
	responded, err := svc.Respond(ctx, "advisor-1", c.ID, &revised)

	require.NoError(t, err)
	assert.Equal(t, revised, responded.Message)
}

func TestService_Respond_UnknownConsultation(t *testing.T) {
	svc, _, _ := newAutoService(t)

	_, err := svc.Respond(context.Background(), "advisor-1", "no-such-consultation", nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Get / List Tests
// ============================================

func TestService_Get_Visibility(t *testing.T) {
	svc, _, _ := newAutoService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", "Engine noise", "My car makes a ticking noise.")
	require.NoError(t, err)

	// The requester and assigned advisor can read it
	_, err = svc.Get(ctx, "user-1", false, c.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "advisor-1", false, c.ID)
	assert.NoError(t, err)

	// An admin can read anything
	_, err = svc.Get(ctx, "someone-else", true, c.ID)
	assert.NoError(t, err)

	// A third party cannot
	_, err = svc.Get(ctx, "someone-else", false, c.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestService_ListForAdvisor(t *testing.T) {
	svc, _, _ := newAutoService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", "First", "First question.")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", "Second", "Second question.")
	require.NoError(t, err)

	forAdvisor, err := svc.ListForAdvisor(ctx, "advisor-1")
	require.NoError(t, err)
	assert.Len(t, forAdvisor, 2) // auto-assignment routes everything to the first advisor

	forOther, err := svc.ListForAdvisor(ctx, "advisor-2")
	require.NoError(t, err)
	assert.Empty(t, forOther)
}
