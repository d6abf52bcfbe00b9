// Package catalog manages the accessory and car listings. Writes are
// admin-only (enforced at the HTTP layer); reads filter to published,
// non-deleted entries unless the caller is staff.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/automarket/internal/infrastructure/store"
	"github.com/example/automarket/internal/model"
)

var (
	ErrNotFound      = errors.New("listing not found")
	ErrInvalidName   = errors.New("name is required")
	ErrInvalidPrice  = errors.New("price must not be negative")
	ErrNegativeStock = errors.New("stock must not be negative")
)

type Service struct {
	store store.CatalogStore
}

func NewService(s store.CatalogStore) *Service {
	return &Service{store: s}
}

// AccessoryInput carries the writable fields of an accessory.
type AccessoryInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	IsPublished bool    `json:"is_published"`
}

func (in AccessoryInput) validate() error {
	if in.Name == "" {
		return ErrInvalidName
	}
	if in.Price < 0 {
		return ErrInvalidPrice
	}
	if in.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

func (s *Service) CreateAccessory(ctx context.Context, createdBy string, in AccessoryInput) (*model.Accessory, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &model.Accessory{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		Stock:       in.Stock,
		IsPublished: in.IsPublished,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAccessory(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAccessory(ctx context.Context, id string, includeUnpublished bool) (*model.Accessory, error) {
	a, err := s.store.GetAccessory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !a.IsPublished && !includeUnpublished {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) UpdateAccessory(ctx context.Context, id string, in AccessoryInput) (*model.Accessory, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	a, err := s.store.GetAccessory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Name = in.Name
	a.Description = in.Description
	a.Price = in.Price
	a.ImageURL = in.ImageURL
	a.Category = in.Category
	a.Stock = in.Stock
	a.IsPublished = in.IsPublished

	if err := s.store.UpdateAccessory(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAccessory(ctx context.Context, id string) error {
	err := s.store.SoftDeleteAccessory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) ListAccessories(ctx context.Context, includeUnpublished bool) ([]*model.Accessory, error) {
	return s.store.ListAccessories(ctx, includeUnpublished)
}

// CarInput carries the writable fields of a car listing.
type CarInput struct {
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	IsPublished bool    `json:"is_published"`
}

func (in CarInput) validate() error {
	if in.Name == "" {
		return ErrInvalidName
	}
	if in.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (s *Service) CreateCar(ctx context.Context, createdBy string, in CarInput) (*model.Car, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &model.Car{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Brand:       in.Brand,
		Model:       in.Model,
		Year:        in.Year,
		Price:       in.Price,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		IsPublished: in.IsPublished,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCar(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCar(ctx context.Context, id string, includeUnpublished bool) (*model.Car, error) {
	c, err := s.store.GetCar(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !c.IsPublished && !includeUnpublished {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) UpdateCar(ctx context.Context, id string, in CarInput) (*model.Car, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.store.GetCar(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Name = in.Name
	c.Brand = in.Brand
	c.Model = in.Model
	c.Year = in.Year
	c.Price = in.Price
	c.Description = in.Description
	c.ImageURL = in.ImageURL
	c.IsPublished = in.IsPublished

	if err := s.store.UpdateCar(ctx, c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCar(ctx context.Context, id string) error {
	err := s.store.SoftDeleteCar(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) ListCars(ctx context.Context, includeUnpublished bool) ([]*model.Car, error) {
	return s.store.ListCars(ctx, includeUnpublished)
}
