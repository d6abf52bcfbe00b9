package account

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/automarket/internal/auth"
	"github.com/example/automarket/internal/infrastructure/store/mocks"
	"github.com/example/automarket/internal/model"
)

// fakeMailer records sent codes so tests can replay them.
type fakeMailer struct {
	verifications map[string]string // email -> code
	resets        map[string]string
	err           error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		verifications: make(map[string]string),
		resets:        make(map[string]string),
	}
}

func (m *fakeMailer) SendVerificationCode(to, username, code string) error {
	if m.err != nil {
		return m.err
	}
	m.verifications[to] = code
	return nil
}

func (m *fakeMailer) SendPasswordReset(to, username, code string) error {
	if m.err != nil {
		return m.err
	}
	m.resets[to] = code
	return nil
}

func newTestService() (*Service, *mocks.MemoryStore, *fakeMailer) {
	memStore := mocks.NewMemoryStore()
	mailer := newFakeMailer()
	return NewService(memStore, mailer), memStore, mailer
}

// ============================================
// Register Tests
// ============================================

func TestService_Register_Success(t *testing.T) {
	svc, _, mailer := newTestService()

	u, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "password123", u.PasswordHash)

	// A 6-digit verification code was emailed
	code := mailer.verifications["alice@example.com"]
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	u, err := svc.Register(ctx, "alice2", "alice@example.com", "password456")

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Nil(t, u)
}

func TestService_Register_ShortPassword(t *testing.T) {
	svc, _, _ := newTestService()

	u, err := svc.Register(context.Background(), "alice", "alice@example.com", "short")

	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
	assert.Nil(t, u)
}

func TestService_Register_MailerFailureDoesNotFailRegistration(t *testing.T) {
	svc, _, mailer := newTestService()
	mailer.err = assert.AnError

	u, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")

	require.NoError(t, err)
	assert.NotNil(t, u)
}

// ============================================
// Authenticate Tests
// ============================================

func TestService_Authenticate_Success(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "alice@example.com", "password123")

	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)
}

func TestService_Authenticate_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "alice@example.com", "wrongpassword")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, u)
}

func TestService_Authenticate_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestService()

	u, err := svc.Authenticate(context.Background(), "nobody@example.com", "password123")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, u)
}

func TestService_Authenticate_InactiveAccount(t *testing.T) {
	svc, memStore, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	registered.IsActive = false
	require.NoError(t, memStore.UpdateUser(ctx, registered))

	u, err := svc.Authenticate(ctx, "alice@example.com", "password123")

	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.Nil(t, u)
}

// ============================================
// Email Verification Tests
// ============================================

func TestService_VerifyEmail_Success(t *testing.T) {
	svc, memStore, mailer := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	code := mailer.verifications["alice@example.com"]
	require.NoError(t, svc.VerifyEmail(ctx, "alice@example.com", code))

	u, err := memStore.GetUser(ctx, registered.ID)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.Empty(t, u.VerifyCode)

	// The code is single-use
	assert.ErrorIs(t, svc.VerifyEmail(ctx, "alice@example.com", code), ErrInvalidCode)
}

func TestService_VerifyEmail_WrongCode(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.VerifyEmail(ctx, "alice@example.com", "000000x"), ErrInvalidCode)
	assert.ErrorIs(t, svc.VerifyEmail(ctx, "nobody@example.com", "123456"), ErrInvalidCode)
}

// ============================================
// Password Reset Tests
// ============================================

func TestService_PasswordReset_FullFlow(t *testing.T) {
	svc, _, mailer := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	code := mailer.resets["alice@example.com"]
	require.NotEmpty(t, code)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, "alice@example.com", code, "newpassword456"))

	// Old password no longer works, new one does
	_, err = svc.Authenticate(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "alice@example.com", "newpassword456")
	assert.NoError(t, err)

	// The reset code is single-use
	err = svc.ConfirmPasswordReset(ctx, "alice@example.com", code, "anotherpassword")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestService_RequestPasswordReset_UnknownEmailSilently(t *testing.T) {
	svc, _, mailer := newTestService()

	// No error and no email: the endpoint must not reveal registration
	err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")

	assert.NoError(t, err)
	assert.Empty(t, mailer.resets)
}

func TestService_ConfirmPasswordReset_WrongCode(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))

	err = svc.ConfirmPasswordReset(ctx, "alice@example.com", "wrong1", "newpassword456")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

// ============================================
// SetRole Tests
// ============================================

func TestService_SetRole_Success(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "carol", "carol@example.com", "password123")
	require.NoError(t, err)

	u, err := svc.SetRole(ctx, registered.ID, model.RoleAdvisor)

	require.NoError(t, err)
	assert.Equal(t, model.RoleAdvisor, u.Role)
}

func TestService_SetRole_InvalidRole(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "carol", "carol@example.com", "password123")
	require.NoError(t, err)

	u, err := svc.SetRole(ctx, registered.ID, "superuser")

	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Nil(t, u)
}

func TestService_SetRole_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService()

	u, err := svc.SetRole(context.Background(), "no-such-user", model.RoleAdmin)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, u)
}
