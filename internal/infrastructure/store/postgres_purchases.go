package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/model"
)

// CreatePurchase commits a checkout in one transaction. Each line is a
// conditional decrement that also reads the live price, so the snapshot and
// the stock mutation cannot diverge. Any failure rolls the whole purchase
// back.
func (s *PostgresStore) CreatePurchase(ctx context.Context, userID, invoiceNumber string, items []CheckoutItem) (*model.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	purchase := &model.Purchase{
		ID:            uuid.New().String(),
		UserID:        userID,
		InvoiceNumber: invoiceNumber,
		CreatedAt:     time.Now().UTC(),
	}

	for _, item := range items {
		// A carted accessory already holds a stock reservation equal to its
		// line quantity. Consume the line here and credit its quantity into
		// the decrement, so every purchased unit is debited exactly once
		// whether it came through the cart or not.
		var reserved int
		err := tx.QueryRowContext(ctx, `
			DELETE FROM cart_lines WHERE user_id = $1 AND accessory_id = $2
			RETURNING quantity
		`, userID, item.AccessoryID).Scan(&reserved)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("consume cart reservation: %w", err)
		}

		var price float64
		var name string
		err = tx.QueryRowContext(ctx, `
			UPDATE accessories SET stock = stock + $3 - $2, updated_at = now()
			WHERE id = $1 AND deleted_at IS NULL AND stock + $3 >= $2
			RETURNING price, name
		`, item.AccessoryID, item.Quantity, reserved).Scan(&price, &name)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if checkErr := tx.QueryRowContext(ctx, `
				SELECT EXISTS (SELECT 1 FROM accessories WHERE id = $1 AND deleted_at IS NULL)
			`, item.AccessoryID).Scan(&exists); checkErr != nil {
				return nil, fmt.Errorf("checkout stock check: %w", checkErr)
			}
			if !exists {
				return nil, ErrNotFound
			}
			return nil, ErrInsufficientStock
		}
		if err != nil {
			return nil, fmt.Errorf("checkout decrement: %w", err)
		}

		purchase.Items = append(purchase.Items, model.PurchaseItem{
			ID:              uuid.New().String(),
			PurchaseID:      purchase.ID,
			AccessoryID:     item.AccessoryID,
			AccessoryName:   name,
			Quantity:        item.Quantity,
			PriceAtPurchase: price,
		})
		purchase.TotalAmount += price * float64(item.Quantity)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, total_amount, invoice_number, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, purchase.ID, purchase.UserID, purchase.TotalAmount, purchase.InvoiceNumber, purchase.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateInvoice
	}
	if err != nil {
		return nil, fmt.Errorf("insert purchase: %w", err)
	}

	for _, item := range purchase.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_items (id, purchase_id, accessory_id, accessory_name, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, item.PurchaseID, item.AccessoryID, item.AccessoryName, item.Quantity, item.PriceAtPurchase)
		if err != nil {
			return nil, fmt.Errorf("insert purchase item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}
	return purchase, nil
}

func (s *PostgresStore) GetPurchase(ctx context.Context, id string) (*model.Purchase, error) {
	var p model.Purchase
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_amount, invoice_number, created_at
		FROM purchases WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.TotalAmount, &p.InvoiceNumber, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	if err := s.loadPurchaseItems(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ListPurchasesByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, invoice_number, created_at
		FROM purchases WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.TotalAmount, &p.InvoiceNumber, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range purchases {
		if err := s.loadPurchaseItems(ctx, p); err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (s *PostgresStore) loadPurchaseItems(ctx context.Context, p *model.Purchase) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, purchase_id, accessory_id, accessory_name, quantity, price_at_purchase
		FROM purchase_items WHERE purchase_id = $1 ORDER BY id
	`, p.ID)
	if err != nil {
		return fmt.Errorf("load purchase items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.AccessoryID, &item.AccessoryName,
			&item.Quantity, &item.PriceAtPurchase); err != nil {
			return fmt.Errorf("scan purchase item: %w", err)
		}
		p.Items = append(p.Items, item)
	}
	return rows.Err()
}
