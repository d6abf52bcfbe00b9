// Package account manages user registration, credentials and the emailed
// verification and password-reset code flows.
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/auth"
	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/model"
)

var (
	ErrEmailTaken         = store.ErrDuplicateEmail
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrInvalidRole        = errors.New("unknown role")
)

// codeTTL bounds how long a verification or reset code stays usable.
const codeTTL = 30 * time.Minute

// Mailer sends the account emails. Delivery is best-effort; failures are
// logged, never surfaced to the caller.
type Mailer interface {
	SendVerificationCode(to, username, code string) error
	SendPasswordReset(to, username, code string) error
}

type Service struct {
	store  store.UserStore
	mailer Mailer
}

func NewService(s store.UserStore, mailer Mailer) *Service {
	return &Service{store: s, mailer: mailer}
}

// Register creates a user with role "user" and emails a verification code.
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	code := newCode()
	expires := time.Now().UTC().Add(codeTTL)
	u := &model.User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		Role:          model.RoleUser,
		IsActive:      true,
		VerifyCode:    code,
		VerifyExpires: &expires,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.sendMail(func() error { return s.mailer.SendVerificationCode(u.Email, u.Username, code) },
		"verification", u.Email)
	return u, nil
}

// Authenticate checks credentials for login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// VerifyEmail consumes a verification code.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if u.VerifyCode == "" || u.VerifyCode != code ||
		u.VerifyExpires == nil || time.Now().After(*u.VerifyExpires) {
		return ErrInvalidCode
	}

	u.EmailVerified = true
	u.VerifyCode = ""
	u.VerifyExpires = nil
	return s.store.UpdateUser(ctx, u)
}

// RequestPasswordReset issues a reset code. A missing account is reported
// as success so the endpoint cannot be used to probe registered emails.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	code := newCode()
	expires := time.Now().UTC().Add(codeTTL)
	u.ResetCode = code
	u.ResetExpires = &expires
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return err
	}

	s.sendMail(func() error { return s.mailer.SendPasswordReset(u.Email, u.Username, code) },
		"password reset", u.Email)
	return nil
}

// ConfirmPasswordReset consumes a reset code and sets the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if u.ResetCode == "" || u.ResetCode != code ||
		u.ResetExpires == nil || time.Now().After(*u.ResetExpires) {
		return ErrInvalidCode
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetCode = ""
	u.ResetExpires = nil
	return s.store.UpdateUser(ctx, u)
}

// SetRole changes a user's role (admin operation).
func (s *Service) SetRole(ctx context.Context, userID, role string) (*model.User, error) {
	switch role {
	case model.RoleAdmin, model.RoleAdvisor, model.RoleUser:
	default:
		return nil, ErrInvalidRole
	}

	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) sendMail(send func() error, kind, to string) {
	if s.mailer == nil {
		return
	}
	if err := send(); err != nil {
		log.Printf("[Account] Failed to send %s email to %s: %v", kind, to, err)
	}
}

// newCode returns a 6-digit numeric code.
func newCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%06d", n.Int64())
}
