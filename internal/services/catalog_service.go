package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/repositories"
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
}

type catalogService struct {
	repo repositories.CatalogRepository
}

// NewCatalogService wires the read-only storefront catalog.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	return &catalogService{repo: deps.Catalog}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[Product]{}, errors.New("catalog service not initialised")
	}

	repoFilter := repositories.ProductFilter{
		Category:    strings.TrimSpace(filter.Category),
		InStockOnly: filter.InStockOnly,
		Pagination: domain.Pagination{
			PageSize:  filter.Pagination.PageSize,
			PageToken: strings.TrimSpace(filter.Pagination.PageToken),
		},
	}
	if repoFilter.Pagination.PageSize <= 0 || repoFilter.Pagination.PageSize > maxProductPageSize {
		repoFilter.Pagination.PageSize = defaultProductPageSize
	}

	return s.repo.ListProducts(ctx, repoFilter)
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, errors.New("catalog service not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCheckoutInvalidInput)
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Product{}, fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		return Product{}, err
	}
	return product, nil
}

const (
	defaultProductPageSize = 20
	maxProductPageSize     = 100
)
