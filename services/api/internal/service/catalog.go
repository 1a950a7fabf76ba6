package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/api/internal/models"
	"github.com/Skotchmaster/storefront/services/api/internal/repo"
)

// Searcher is the full-text product index.
type Searcher interface {
	Index(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Search Searcher
}

type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	ImageURL    *string
}

type productPayload struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

func (in ProductInput) apply(p *models.Product) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("name cannot be empty: %w", ErrValidation)
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return fmt.Errorf("price cannot be negative: %w", ErrValidation)
		}
		p.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return fmt.Errorf("stock cannot be negative: %w", ErrValidation)
		}
		p.Stock = *in.Stock
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

// ListProducts returns products ordered by id. A zero limit returns all.
func (s *CatalogService) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil || in.Price == nil {
		return nil, fmt.Errorf("name and price are required: %w", ErrValidation)
	}
	var p models.Product
	if err := in.apply(&p); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateProduct(ctx, &p); err != nil {
		return nil, err
	}

	s.index(ctx, p)
	publish(ctx, s.Events, events.TopicProducts, p.ID, "product_created", productPayload{ProductID: p.ID, Name: p.Name, Price: p.Price})
	return &p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		return nil, err
	}

	s.index(ctx, *p)
	publish(ctx, s.Events, events.TopicProducts, p.ID, "product_updated", productPayload{ProductID: p.ID, Name: p.Name, Price: p.Price})
	return p, nil
}

// DeleteProduct removes the product row. Cart lines that reference it are
// kept and render as unavailable.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product")
	}

	if s.Search != nil {
		if err := s.Search.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_delete_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProducts, id, "product_deleted", productPayload{ProductID: id})
	return nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if s.Search == nil {
		return 0, nil, fmt.Errorf("product search is not configured: %w", ErrSearchDisabled)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("query is required: %w", ErrValidation)
	}
	return s.Search.Search(ctx, query, from, size)
}

// ReindexAll pushes every stored product to the search index.
func (s *CatalogService) ReindexAll(ctx context.Context) (int, error) {
	if s.Search == nil {
		return 0, nil
	}
	_, products, err := s.Repo.ListProducts(ctx, 0, 0)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if err := s.Search.Index(ctx, p); err != nil {
			return 0, fmt.Errorf("index product %d: %w", p.ID, err)
		}
	}
	return len(products), nil
}

func (s *CatalogService) index(ctx context.Context, p models.Product) {
	if s.Search == nil {
		return
	}
	if err := s.Search.Index(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}
