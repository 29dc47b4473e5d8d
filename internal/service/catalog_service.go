package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/ids"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/repository"
)

type CatalogService struct {
	products ProductStore
	activity *ActivityRecorder
	log      zerolog.Logger
}

func NewCatalogService(products ProductStore, activity *ActivityRecorder, log zerolog.Logger) *CatalogService {
	return &CatalogService{products: products, activity: activity, log: log}
}

type ListProductsInput struct {
	Category string
	Brand    string
	Search   string
	Page     int
	Limit    int
}

func (s *CatalogService) List(ctx context.Context, input ListProductsInput) ([]models.Product, int, error) {
	limit, offset := normalizePage(input.Page, input.Limit)
	products, total, err := s.products.List(ctx, repository.ProductFilter{
		Category: input.Category,
		Brand:    input.Brand,
		Search:   input.Search,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return products, total, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return models.Product{}, apperr.NotFound("product not found")
		}
		return models.Product{}, apperr.Internal(err)
	}
	return product, nil
}

type ProductInput struct {
	Name        string
	Category    string
	Brand       string
	Price       int64
	Description string
	Stock       int
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperr.Validation("product name required")
	}
	if input.Price <= 0 {
		return apperr.Validation("price must be positive")
	}
	if input.Stock < 0 {
		return apperr.Validation("stock cannot be negative")
	}
	return nil
}

func (s *CatalogService) Create(ctx context.Context, adminID string, input ProductInput) (models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return models.Product{}, err
	}

	product := models.Product{
		ID:          ids.New(),
		Name:        input.Name,
		Category:    input.Category,
		Brand:       input.Brand,
		Price:       input.Price,
		Description: input.Description,
		Stock:       input.Stock,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return models.Product{}, apperr.Internal(err)
	}

	s.activity.Record(ActivityEntry{
		UserID:  &adminID,
		Action:  "product_created",
		Details: map[string]any{"product_id": product.ID},
	})
	return product, nil
}

// Update edits the live catalog entry. Order snapshots are unaffected.
func (s *CatalogService) Update(ctx context.Context, adminID string, id string, input ProductInput) (models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return models.Product{}, err
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	product.Name = input.Name
	product.Category = input.Category
	product.Brand = input.Brand
	product.Price = input.Price
	product.Description = input.Description
	product.Stock = input.Stock

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return models.Product{}, apperr.NotFound("product not found")
		}
		return models.Product{}, apperr.Internal(err)
	}

	s.activity.Record(ActivityEntry{
		UserID:  &adminID,
		Action:  "product_updated",
		Details: map[string]any{"product_id": id},
	})
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, adminID string, id string) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return apperr.NotFound("product not found")
		}
		return apperr.Internal(err)
	}

	s.activity.Record(ActivityEntry{
		UserID:  &adminID,
		Action:  "product_deleted",
		Details: map[string]any{"product_id": id},
	})
	return nil
}

// SetImage stores the uploaded image URL on the product.
func (s *CatalogService) SetImage(ctx context.Context, id string, url string) (models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	product.ImageURL = &url
	if err := s.products.Update(ctx, product); err != nil {
		return models.Product{}, apperr.Internal(err)
	}
	return product, nil
}
