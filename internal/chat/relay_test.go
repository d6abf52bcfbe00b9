package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/automarket/internal/infrastructure/store/mocks"
	"github.com/example/automarket/internal/model"
)

// fakeSession records delivered payloads and can be made to fail.
type fakeSession struct {
	received []any
	fail     bool
}

func (s *fakeSession) Send(v any) error {
	if s.fail {
		return errors.New("connection closed")
	}
	s.received = append(s.received, v)
	return nil
}

func newTestRelay(t *testing.T, status string) (*Relay, *mocks.MemoryStore, string) {
	t.Helper()
	memStore := mocks.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, memStore.CreateUser(ctx, &model.User{
		ID: "user-1", Username: "alice", Email: "alice@example.com",
		Role: model.RoleUser, IsActive: true, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, memStore.CreateUser(ctx, &model.User{
		ID: "advisor-1", Username: "carol", Email: "carol@example.com",
		Role: model.RoleAdvisor, IsActive: true, CreatedAt: time.Now().UTC(),
	}))

	advisorID := "advisor-1"
	consultation := &model.Consultation{
		ID:        "cons-1",
		UserID:    "user-1",
		AdvisorID: &advisorID,
		Subject:   "Engine noise",
		Message:   "My car makes a ticking noise.",
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, memStore.CreateConsultation(ctx, consultation))

	return NewRelay(memStore), memStore, consultation.ID
}

// ============================================
// Registry Tests
// ============================================

func TestRelay_RegisterUnregister(t *testing.T) {
	relay, _, _ := newTestRelay(t, model.ConsultationResponded)

	s1 := &fakeSession{}
	s2 := &fakeSession{}

	relay.Register("user-1", s1)
	relay.Register("user-1", s2)
	assert.Equal(t, 2, relay.Connections("user-1"))

	relay.Unregister("user-1", s1)
	assert.Equal(t, 1, relay.Connections("user-1"))

	relay.Unregister("user-1", s2)
	assert.Equal(t, 0, relay.Connections("user-1"))
}

// ============================================
// Send Tests
// ============================================

func TestRelay_Send_DeliversToAllReceiverSessions(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)
	ctx := context.Background()

	tab1 := &fakeSession{}
	tab2 := &fakeSession{}
	relay.Register("advisor-1", tab1)
	relay.Register("advisor-1", tab2)

	out, err := relay.Send(ctx, "user-1", Inbound{
		ReceiverID:     "advisor-1",
		Content:        "Is this covered by warranty?",
		ConsultationID: consID,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "user-1", out.SenderID)
	assert.Equal(t, "alice", out.Sender.Username)

	// Both of the receiver's sessions got the same payload
	require.Len(t, tab1.received, 1)
	require.Len(t, tab2.received, 1)
	assert.Equal(t, out, tab1.received[0])
	assert.Equal(t, out, tab2.received[0])
}

func TestRelay_Send_AdvisorToUser(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)

	userSession := &fakeSession{}
	relay.Register("user-1", userSession)

	out, err := relay.Send(context.Background(), "advisor-1", Inbound{
		ReceiverID:     "user-1",
		Content:        "Yes, ticking at cold start is usually lifters.",
		ConsultationID: consID,
	})

	require.NoError(t, err)
	assert.Equal(t, "carol", out.Sender.Username)
	assert.Len(t, userSession.received, 1)
}

func TestRelay_Send_PrunesStaleSessions(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)
	ctx := context.Background()

	stale := &fakeSession{fail: true}
	live := &fakeSession{}
	relay.Register("advisor-1", stale)
	relay.Register("advisor-1", live)

	_, err := relay.Send(ctx, "user-1", Inbound{
		ReceiverID:     "advisor-1",
		Content:        "First message",
		ConsultationID: consID,
	})
	require.NoError(t, err)

	// Stale session was dropped, live one remains
	assert.Equal(t, 1, relay.Connections("advisor-1"))
	assert.Len(t, live.received, 1)
}

func TestRelay_Send_OfflineReceiverStillPersists(t *testing.T) {
	relay, memStore, consID := newTestRelay(t, model.ConsultationResponded)
	ctx := context.Background()

	out, err := relay.Send(ctx, "user-1", Inbound{
		ReceiverID:     "advisor-1",
		Content:        "Anyone there?",
		ConsultationID: consID,
	})

	require.NoError(t, err)
	assert.NotNil(t, out)

	messages, err := memStore.ListMessagesByConsultation(ctx, consID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestRelay_Send_PendingConsultationRejected(t *testing.T) {
	relay, memStore, consID := newTestRelay(t, model.ConsultationPending)
	ctx := context.Background()

	out, err := relay.Send(ctx, "user-1", Inbound{
		ReceiverID:     "advisor-1",
		Content:        "Hello?",
		ConsultationID: consID,
	})

	assert.ErrorIs(t, err, ErrConsultationNotOpen)
	assert.Nil(t, out)

	messages, err := memStore.ListMessagesByConsultation(ctx, consID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRelay_Send_MissingConsultationID(t *testing.T) {
	relay, _, _ := newTestRelay(t, model.ConsultationResponded)

	out, err := relay.Send(context.Background(), "user-1", Inbound{
		ReceiverID: "advisor-1",
		Content:    "Hello",
	})

	assert.ErrorIs(t, err, ErrMissingConsultation)
	assert.Nil(t, out)
}

func TestRelay_Send_EmptyContent(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)

	out, err := relay.Send(context.Background(), "user-1", Inbound{
		ReceiverID:     "advisor-1",
		ConsultationID: consID,
	})

	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Nil(t, out)
}

func TestRelay_Send_ThirdPartyRejected(t *testing.T) {
	relay, memStore, consID := newTestRelay(t, model.ConsultationResponded)
	ctx := context.Background()

	require.NoError(t, memStore.CreateUser(ctx, &model.User{
		ID: "intruder", Username: "mallory", Email: "mallory@example.com",
		Role: model.RoleUser, IsActive: true, CreatedAt: time.Now().UTC(),
	}))

	// Not a party of the consultation
	_, err := relay.Send(ctx, "intruder", Inbound{
		ReceiverID:     "advisor-1",
		Content:        "Let me in",
		ConsultationID: consID,
	})
	assert.ErrorIs(t, err, ErrConsultationNotOpen)

	// A party sending to a non-party is rejected too
	_, err = relay.Send(ctx, "user-1", Inbound{
		ReceiverID:     "intruder",
		Content:        "Wrong receiver",
		ConsultationID: consID,
	})
	assert.ErrorIs(t, err, ErrConsultationNotOpen)
}

// blockingSession parks inside Send until released, like a connection
// whose peer stopped reading.
type blockingSession struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSession) Send(v any) error {
	close(s.entered)
	<-s.release
	return nil
}

func TestRelay_Send_BlockedSessionDoesNotStallRegistry(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)
	ctx := context.Background()

	blocked := &blockingSession{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	relay.Register("advisor-1", blocked)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := relay.Send(ctx, "user-1", Inbound{
			ReceiverID:     "advisor-1",
			Content:        "Are you there?",
			ConsultationID: consID,
		})
		assert.NoError(t, err)
	}()

	// Wait until delivery is parked inside the session's Send.
	<-blocked.entered

	// Registry operations must still complete while the send is stuck.
	registered := make(chan struct{})
	go func() {
		relay.Register("user-1", &fakeSession{})
		relay.Connections("user-1")
		close(registered)
	}()

	select {
	case <-registered:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("registry blocked while a session send was in flight")
	}

	close(blocked.release)
	<-done
}

func TestRelay_Send_UnknownConsultation(t *testing.T) {
	relay, _, _ := newTestRelay(t, model.ConsultationResponded)

	_, err := relay.Send(context.Background(), "user-1", Inbound{
		ReceiverID:     "advisor-1",
		Content:        "Hello",
		ConsultationID: "no-such-consultation",
	})

	assert.ErrorIs(t, err, ErrConsultationNotOpen)
}

// ============================================
// History Tests
// ============================================

func TestRelay_History_OrderedOldestFirst(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		_, err := relay.Send(ctx, "user-1", Inbound{
			ReceiverID:     "advisor-1",
			Content:        content,
			ConsultationID: consID,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	history, err := relay.History(ctx, "user-1", consID)

	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, "third", history[2].Content)
}

func TestRelay_History_AdvisorCanRead(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)

	history, err := relay.History(context.Background(), "advisor-1", consID)

	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRelay_History_ThirdPartyForbidden(t *testing.T) {
	relay, _, consID := newTestRelay(t, model.ConsultationResponded)

	history, err := relay.History(context.Background(), "intruder", consID)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, history)
}

func TestRelay_History_UnknownConsultation(t *testing.T) {
	relay, _, _ := newTestRelay(t, model.ConsultationResponded)

	history, err := relay.History(context.Background(), "user-1", "no-such-consultation")

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, history)
}
