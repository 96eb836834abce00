package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/repositories"
)

type fakeCatalogRepo struct {
	page  domain.CursorPage[domain.Product]
	byID  map[string]domain.Product
	err   error
	calls int

	lastFilter repositories.ProductFilter
}

func (f *fakeCatalogRepo) ListProducts(_ context.Context, filter repositories.ProductFilter) (domain.CursorPage[domain.Product], error) {
	f.calls++
	f.lastFilter = filter
	if f.err != nil {
		return domain.CursorPage[domain.Product]{}, f.err
	}
	return f.page, nil
}

func (f *fakeCatalogRepo) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	f.calls++
	if f.err != nil {
		return domain.Product{}, f.err
	}
	if product, ok := f.byID[productID]; ok {
		return product, nil
	}
	return domain.Product{}, &fakeRepoError{notFound: true}
}

func newTestCatalogService(t *testing.T, repo *fakeCatalogRepo) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo})
	if err != nil {
		t.Fatalf("NewCatalogService error: %v", err)
	}
	return svc
}

func TestCatalogService_ListProductsNormalisesFilter(t *testing.T) {
	repo := &fakeCatalogRepo{
		page: domain.CursorPage[domain.Product]{
			Items: []domain.Product{{ID: "prod-1", Name: "Omega-3", Price: 2999}},
		},
	}
	svc := newTestCatalogService(t, repo)

	page, err := svc.ListProducts(context.Background(), ProductListFilter{
		Category:    "  vitamins ",
		InStockOnly: true,
		Pagination:  Pagination{PageSize: 25, PageToken: " token "},
	})
	if err != nil {
		t.Fatalf("ListProducts error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if repo.lastFilter.Category != "vitamins" {
		t.Fatalf("expected trimmed category got %q", repo.lastFilter.Category)
	}
	if !repo.lastFilter.InStockOnly {
		t.Fatalf("expected in-stock filter to pass through")
	}
	if repo.lastFilter.Pagination.PageSize != 25 || repo.lastFilter.Pagination.PageToken != "token" {
		t.Fatalf("unexpected pagination %+v", repo.lastFilter.Pagination)
	}
}

func TestCatalogService_ListProductsClampsPageSize(t *testing.T) {
	repo := &fakeCatalogRepo{}
	svc := newTestCatalogService(t, repo)

	for _, size := range []int{0, -1, 1000} {
		if _, err := svc.ListProducts(context.Background(), ProductListFilter{Pagination: Pagination{PageSize: size}}); err != nil {
			t.Fatalf("ListProducts(size=%d) error: %v", size, err)
		}
		if repo.lastFilter.Pagination.PageSize != defaultProductPageSize {
			t.Fatalf("ListProducts(size=%d): expected page size %d got %d", size, defaultProductPageSize, repo.lastFilter.Pagination.PageSize)
		}
	}
}

func TestCatalogService_GetProduct(t *testing.T) {
	repo := &fakeCatalogRepo{byID: map[string]domain.Product{
		"prod-1": {ID: "prod-1", Name: "Vitamin D", Price: 1999, InStock: true},
	}}
	svc := newTestCatalogService(t, repo)

	product, err := svc.GetProduct(context.Background(), " prod-1 ")
	if err != nil {
		t.Fatalf("GetProduct error: %v", err)
	}
	if product.Name != "Vitamin D" {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestCatalogService_GetProductMissing(t *testing.T) {
	svc := newTestCatalogService(t, &fakeCatalogRepo{})

	_, err := svc.GetProduct(context.Background(), "prod-unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogService_GetProductRequiresID(t *testing.T) {
	repo := &fakeCatalogRepo{}
	svc := newTestCatalogService(t, repo)

	_, err := svc.GetProduct(context.Background(), "   ")
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("repository must not be consulted for blank ids")
	}
}
