package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/automarket/internal/model"
)

const accessoryColumns = `id, name, description, price, image_url, category, stock,
	is_published, created_by, created_at, updated_at, deleted_at`

func (s *PostgresStore) CreateAccessory(ctx context.Context, a *model.Accessory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accessories (id, name, description, price, image_url, category, stock,
			is_published, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.Name, a.Description, a.Price, a.ImageURL, a.Category, a.Stock,
		a.IsPublished, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create accessory: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccessory(ctx context.Context, id string) (*model.Accessory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accessoryColumns+` FROM accessories WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanAccessory(row)
}

func (s *PostgresStore) UpdateAccessory(ctx context.Context, a *model.Accessory) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accessories SET
			name = $2, description = $3, price = $4, image_url = $5, category = $6,
			stock = $7, is_published = $8, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, a.ID, a.Name, a.Description, a.Price, a.ImageURL, a.Category, a.Stock, a.IsPublished)
	if err != nil {
		return fmt.Errorf("update accessory: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) SoftDeleteAccessory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accessories SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("delete accessory: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListAccessories(ctx context.Context, includeUnpublished bool) ([]*model.Accessory, error) {
	query := `SELECT ` + accessoryColumns + ` FROM accessories WHERE deleted_at IS NULL`
	if !includeUnpublished {
		query += ` AND is_published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accessories: %w", err)
	}
	defer rows.Close()

	var accessories []*model.Accessory
	for rows.Next() {
		a, err := scanAccessory(rows)
		if err != nil {
			return nil, err
		}
		accessories = append(accessories, a)
	}
	return accessories, rows.Err()
}

// ReserveStock is the single conditional decrement that keeps stock
// non-negative under concurrent checkouts.
func (s *PostgresStore) ReserveStock(ctx context.Context, accessoryID string, qty int) (int, error) {
	var stock int
	err := s.db.QueryRowContext(ctx, `
		UPDATE accessories SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND stock >= $2
		RETURNING stock
	`, accessoryID, qty).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing accessory from a shortfall.
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM accessories WHERE id = $1 AND deleted_at IS NULL)
		`, accessoryID).Scan(&exists); checkErr != nil {
			return 0, fmt.Errorf("reserve stock: %w", checkErr)
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}
	return stock, nil
}

func (s *PostgresStore) ReleaseStock(ctx context.Context, accessoryID string, qty int) (int, error) {
	var stock int
	err := s.db.QueryRowContext(ctx, `
		UPDATE accessories SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING stock
	`, accessoryID, qty).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("release stock: %w", err)
	}
	return stock, nil
}

func scanAccessory(row rowScanner) (*model.Accessory, error) {
	var a model.Accessory
	var deletedAt sql.NullTime
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Price, &a.ImageURL, &a.Category,
		&a.Stock, &a.IsPublished, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan accessory: %w", err)
	}
	a.DeletedAt = timePtr(deletedAt)
	return &a, nil
}

const carColumns = `id, name, brand, model, year, price, description, image_url,
	is_published, created_by, created_at, updated_at, deleted_at`

func (s *PostgresStore) CreateCar(ctx context.Context, c *model.Car) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cars (id, name, brand, model, year, price, description, image_url,
			is_published, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.Name, c.Brand, c.Model, c.Year, c.Price, c.Description, c.ImageURL,
		c.IsPublished, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create car: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCar(ctx context.Context, id string) (*model.Car, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+carColumns+` FROM cars WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanCar(row)
}

func (s *PostgresStore) UpdateCar(ctx context.Context, c *model.Car) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cars SET
			name = $2, brand = $3, model = $4, year = $5, price = $6, description = $7,
			image_url = $8, is_published = $9, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, c.ID, c.Name, c.Brand, c.Model, c.Year, c.Price, c.Description, c.ImageURL, c.IsPublished)
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) SoftDeleteCar(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cars SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListCars(ctx context.Context, includeUnpublished bool) ([]*model.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE deleted_at IS NULL`
	if !includeUnpublished {
		query += ` AND is_published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var cars []*model.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

func scanCar(row rowScanner) (*model.Car, error) {
	var c model.Car
	var deletedAt sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Brand, &c.Model, &c.Year, &c.Price, &c.Description,
		&c.ImageURL, &c.IsPublished, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan car: %w", err)
	}
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}
