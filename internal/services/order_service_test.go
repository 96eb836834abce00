package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/nutriform/api/internal/domain"
)

type fakeOrderHistoryRepo struct {
	page    domain.CursorPage[domain.Order]
	byKey   map[string]domain.Order
	listErr error
	findErr error

	lastCustomerID string
	lastPager      domain.Pagination
}

func (f *fakeOrderHistoryRepo) InsertWithItems(context.Context, domain.Order) error {
	return errors.New("not implemented")
}

func (f *fakeOrderHistoryRepo) FindByNumber(_ context.Context, customerID string, orderNumber string) (domain.Order, error) {
	if f.findErr != nil {
		return domain.Order{}, f.findErr
	}
	if order, ok := f.byKey[customerID+"/"+orderNumber]; ok {
		return order, nil
	}
	return domain.Order{}, &fakeRepoError{notFound: true}
}

func (f *fakeOrderHistoryRepo) ListByCustomer(_ context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	f.lastCustomerID = customerID
	f.lastPager = pager
	if f.listErr != nil {
		return domain.CursorPage[domain.Order]{}, f.listErr
	}
	return f.page, nil
}

func (f *fakeOrderHistoryRepo) MarkNeedsReconciliation(context.Context, string, string, time.Time) error {
	return errors.New("not implemented")
}

func newTestOrderService(t *testing.T, repo *fakeOrderHistoryRepo) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{Orders: repo})
	if err != nil {
		t.Fatalf("NewOrderService error: %v", err)
	}
	return svc
}

func TestOrderService_ListOrdersDelegates(t *testing.T) {
	repo := &fakeOrderHistoryRepo{
		page: domain.CursorPage[domain.Order]{
			Items:         []domain.Order{{ID: "ord-1", OrderNumber: "ORD-000123001"}},
			NextPageToken: "next",
		},
	}
	svc := newTestOrderService(t, repo)

	page, err := svc.ListOrders(context.Background(), "cust-1", Pagination{PageSize: 10, PageToken: " token "})
	if err != nil {
		t.Fatalf("ListOrders error: %v", err)
	}
	if len(page.Items) != 1 || page.NextPageToken != "next" {
		t.Fatalf("unexpected page %+v", page)
	}
	if repo.lastCustomerID != "cust-1" {
		t.Fatalf("expected customer cust-1 got %q", repo.lastCustomerID)
	}
	if repo.lastPager.PageSize != 10 || repo.lastPager.PageToken != "token" {
		t.Fatalf("unexpected pager %+v", repo.lastPager)
	}
}

func TestOrderService_ListOrdersClampsPageSize(t *testing.T) {
	repo := &fakeOrderHistoryRepo{}
	svc := newTestOrderService(t, repo)

	for _, size := range []int{0, -5, 500} {
		if _, err := svc.ListOrders(context.Background(), "cust-1", Pagination{PageSize: size}); err != nil {
			t.Fatalf("ListOrders(size=%d) error: %v", size, err)
		}
		if repo.lastPager.PageSize != defaultOrderPageSize {
			t.Fatalf("ListOrders(size=%d): expected page size %d got %d", size, defaultOrderPageSize, repo.lastPager.PageSize)
		}
	}
}

func TestOrderService_ListOrdersRequiresCustomer(t *testing.T) {
	svc := newTestOrderService(t, &fakeOrderHistoryRepo{})

	_, err := svc.ListOrders(context.Background(), "  ", Pagination{})
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestOrderService_GetOrder(t *testing.T) {
	repo := &fakeOrderHistoryRepo{byKey: map[string]domain.Order{
		"cust-1/ORD-000123001": {ID: "ord-1", OrderNumber: "ORD-000123001", CustomerID: "cust-1"},
	}}
	svc := newTestOrderService(t, repo)

	order, err := svc.GetOrder(context.Background(), "cust-1", "ORD-000123001")
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if order.ID != "ord-1" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestOrderService_GetOrderMissMapsToNotFound(t *testing.T) {
	svc := newTestOrderService(t, &fakeOrderHistoryRepo{})

	_, err := svc.GetOrder(context.Background(), "cust-1", "ORD-999999999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderService_GetOrderOtherCustomerReadsAsNotFound(t *testing.T) {
	repo := &fakeOrderHistoryRepo{byKey: map[string]domain.Order{
		"cust-1/ORD-000123001": {ID: "ord-1", CustomerID: "cust-1"},
	}}
	svc := newTestOrderService(t, repo)

	_, err := svc.GetOrder(context.Background(), "cust-2", "ORD-000123001")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderService_GetOrderRepositoryFailureSurfaces(t *testing.T) {
	boom := errors.New("backend offline")
	svc := newTestOrderService(t, &fakeOrderHistoryRepo{findErr: boom})

	_, err := svc.GetOrder(context.Background(), "cust-1", "ORD-000123001")
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
