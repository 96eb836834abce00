package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/platform/auth"
	"github.com/nutriform/api/internal/services"
)

type stubOrderService struct {
	listFn func(context.Context, string, services.Pagination) (domain.CursorPage[services.Order], error)
	getFn  func(context.Context, string, string) (services.Order, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context, customerID string, pager services.Pagination) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, customerID, pager)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, customerID string, orderNumber string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, customerID, orderNumber)
	}
	return services.Order{}, errors.New("not implemented")
}

func newOrderRouter(service services.OrderService) chi.Router {
	handler := NewOrderHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)
	return router
}

func TestOrderHandlersListSuccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var capturedCustomer string
	var capturedPager services.Pagination
	service := &stubOrderService{
		listFn: func(_ context.Context, customerID string, pager services.Pagination) (domain.CursorPage[services.Order], error) {
			capturedCustomer = customerID
			capturedPager = pager
			return domain.CursorPage[services.Order]{
				Items: []services.Order{{
					ID:          "ord-1",
					OrderNumber: "ORD-000123007",
					CustomerID:  "user-1",
					Status:      domain.OrderStatusProcessing,
					TotalAmount: 6909,
					CreatedAt:   now,
				}},
				NextPageToken: "tok-next",
			}, nil
		},
	}

	router := newOrderRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/orders/?page_size=10&page_token=tok123", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedCustomer != "user-1" {
		t.Fatalf("expected customer user-1, got %q", capturedCustomer)
	}
	if capturedPager.PageSize != 10 || capturedPager.PageToken != "tok123" {
		t.Fatalf("unexpected pager %+v", capturedPager)
	}

	var resp orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].OrderNumber != "ORD-000123007" {
		t.Fatalf("unexpected response %#v", resp)
	}
	if resp.NextPageToken != "tok-next" {
		t.Fatalf("expected next page token, got %q", resp.NextPageToken)
	}
}

func TestOrderHandlersListRequiresAuth(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})
	req := httptest.NewRequest(http.MethodGet, "/orders/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestOrderHandlersListRejectsBadPageSize(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})
	req := httptest.NewRequest(http.MethodGet, "/orders/?page_size=abc", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersGetSuccess(t *testing.T) {
	service := &stubOrderService{
		getFn: func(_ context.Context, customerID string, orderNumber string) (services.Order, error) {
			if customerID != "user-1" || orderNumber != "ORD-000123007" {
				return services.Order{}, fmt.Errorf("unexpected lookup %s/%s", customerID, orderNumber)
			}
			promo := "WELCOME10"
			return services.Order{
				ID:          "ord-1",
				OrderNumber: orderNumber,
				CustomerID:  customerID,
				Status:      domain.OrderStatusProcessing,
				TotalAmount: 6909,
				PromoCode:   &promo,
				Items: []domain.OrderItem{
					{ProductID: "prod-a", ProductName: "Omega-3", Quantity: 2, Price: 2999},
				},
			}, nil
		},
	}

	router := newOrderRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/orders/ORD-000123007", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.PromoCode != "WELCOME10" {
		t.Fatalf("expected promo code, got %q", resp.PromoCode)
	}
	if len(resp.Items) != 1 || resp.Items[0].ProductName != "Omega-3" {
		t.Fatalf("unexpected items %#v", resp.Items)
	}
}

func TestOrderHandlersGetNotFound(t *testing.T) {
	service := &stubOrderService{
		getFn: func(context.Context, string, string) (services.Order, error) {
			return services.Order{}, fmt.Errorf("%w: order", services.ErrNotFound)
		},
	}

	router := newOrderRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/orders/ORD-999999999", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
