package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/model"
)

func (s *PostgresStore) GetCartLine(ctx context.Context, userID, accessoryID string) (*model.CartLine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, accessory_id, quantity, added_at
		FROM cart_lines WHERE user_id = $1 AND accessory_id = $2
	`, userID, accessoryID)
	return scanCartLine(row)
}

// UpsertCartLine creates the (user, accessory) line or increments its
// quantity on a repeat add.
func (s *PostgresStore) UpsertCartLine(ctx context.Context, userID, accessoryID string, qty int) (*model.CartLine, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO cart_lines (id, user_id, accessory_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT cart_lines_user_accessory_key
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		RETURNING id, user_id, accessory_id, quantity, added_at
	`, uuid.New().String(), userID, accessoryID, qty)
	line, err := scanCartLine(row)
	if err != nil {
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}
	return line, nil
}

func (s *PostgresStore) DeleteCartLine(ctx context.Context, userID, accessoryID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_lines WHERE user_id = $1 AND accessory_id = $2
	`, userID, accessoryID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListCartLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, accessory_id, quantity, added_at
		FROM cart_lines WHERE user_id = $1 ORDER BY added_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []*model.CartLine
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanCartLine(row rowScanner) (*model.CartLine, error) {
	var l model.CartLine
	err := row.Scan(&l.ID, &l.UserID, &l.AccessoryID, &l.Quantity, &l.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan cart line: %w", err)
	}
	return &l, nil
}
