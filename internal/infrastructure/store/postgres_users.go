package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/automarket/internal/model"
)

const userColumns = `id, username, email, password_hash, role, is_active, email_verified,
	avatar_url, verify_code, verify_expires, reset_code, reset_expires, created_at`

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, u.EmailVerified,
		u.AvatarURL, u.VerifyCode, nullTime(u.VerifyExpires), u.ResetCode, nullTime(u.ResetExpires), u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			username = $2, email = $3, password_hash = $4, role = $5, is_active = $6,
			email_verified = $7, avatar_url = $8, verify_code = $9, verify_expires = $10,
			reset_code = $11, reset_expires = $12
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive,
		u.EmailVerified, u.AvatarURL, u.VerifyCode, nullTime(u.VerifyExpires),
		u.ResetCode, nullTime(u.ResetExpires))
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListAdvisors(ctx context.Context) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = $1 AND is_active ORDER BY created_at
	`, model.RoleAdvisor)
	if err != nil {
		return nil, fmt.Errorf("list advisors: %w", err)
	}
	defer rows.Close()

	var advisors []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		advisors = append(advisors, u)
	}
	return advisors, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var verifyExpires, resetExpires sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.EmailVerified, &u.AvatarURL, &u.VerifyCode, &verifyExpires, &u.ResetCode,
		&resetExpires, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.VerifyExpires = timePtr(verifyExpires)
	u.ResetExpires = timePtr(resetExpires)
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
