package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/automarket/internal/model"
)

const consultationColumns = `id, user_id, advisor_id, subject, message, status,
	answered_at, created_at, updated_at`

func (s *PostgresStore) CreateConsultation(ctx context.Context, c *model.Consultation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consultations (`+consultationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.UserID, nullString(c.AdvisorID), c.Subject, c.Message, c.Status,
		nullTime(c.AnsweredAt), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create consultation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConsultation(ctx context.Context, id string) (*model.Consultation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+consultationColumns+` FROM consultations WHERE id = $1
	`, id)
	return scanConsultation(row)
}

func (s *PostgresStore) UpdateConsultation(ctx context.Context, c *model.Consultation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE consultations SET
			advisor_id = $2, subject = $3, message = $4, status = $5,
			answered_at = $6, updated_at = $7
		WHERE id = $1
	`, c.ID, nullString(c.AdvisorID), c.Subject, c.Message, c.Status,
		nullTime(c.AnsweredAt), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update consultation: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListConsultationsByUser(ctx context.Context, userID string) ([]*model.Consultation, error) {
	return s.listConsultations(ctx, `user_id = $1`, userID)
}

func (s *PostgresStore) ListConsultationsByAdvisor(ctx context.Context, advisorID string) ([]*model.Consultation, error) {
	return s.listConsultations(ctx, `advisor_id = $1`, advisorID)
}

func (s *PostgresStore) listConsultations(ctx context.Context, where string, arg any) ([]*model.Consultation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+consultationColumns+` FROM consultations WHERE `+where+` ORDER BY created_at DESC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var consultations []*model.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		consultations = append(consultations, c)
	}
	return consultations, rows.Err()
}

func scanConsultation(row rowScanner) (*model.Consultation, error) {
	var c model.Consultation
	var advisorID sql.NullString
	var answeredAt sql.NullTime
	err := row.Scan(&c.ID, &c.UserID, &advisorID, &c.Subject, &c.Message, &c.Status,
		&answeredAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan consultation: %w", err)
	}
	if advisorID.Valid {
		c.AdvisorID = &advisorID.String
	}
	c.AnsweredAt = timePtr(answeredAt)
	return &c, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *PostgresStore) CreateMessage(ctx context.Context, m *model.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, consultation_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.SenderID, m.ReceiverID, m.ConsultationID, m.Content, m.IsRead, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessagesByConsultation(ctx context.Context, consultationID string) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, consultation_id, content, is_read, created_at
		FROM messages WHERE consultation_id = $1 ORDER BY created_at
	`, consultationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.ConsultationID,
			&m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.UserID, n.Title, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotificationsByUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, is_read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
