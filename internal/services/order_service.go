package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/repositories"
)

// OrderServiceDeps bundles constructor inputs for the order history service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
}

type orderService struct {
	repo repositories.OrderRepository
}

// NewOrderService wires the customer-facing order history reads.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	return &orderService{repo: deps.Orders}, nil
}

// ListOrders returns the customer's orders newest first.
func (s *orderService) ListOrders(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[Order], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[Order]{}, errors.New("order service not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: customer id is required", ErrCheckoutInvalidInput)
	}

	repoPager := domain.Pagination{
		PageSize:  pager.PageSize,
		PageToken: strings.TrimSpace(pager.PageToken),
	}
	if repoPager.PageSize <= 0 || repoPager.PageSize > maxOrderPageSize {
		repoPager.PageSize = defaultOrderPageSize
	}

	return s.repo.ListByCustomer(ctx, customerID, repoPager)
}

// GetOrder fetches a single order by its customer-facing number. Orders are
// scoped to the calling customer, so a number belonging to another customer
// reads as not found.
func (s *orderService) GetOrder(ctx context.Context, customerID string, orderNumber string) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, errors.New("order service not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	orderNumber = strings.TrimSpace(orderNumber)
	if customerID == "" {
		return Order{}, fmt.Errorf("%w: customer id is required", ErrCheckoutInvalidInput)
	}
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrCheckoutInvalidInput)
	}

	order, err := s.repo.FindByNumber(ctx, customerID, orderNumber)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderNumber)
		}
		return Order{}, err
	}
	return order, nil
}

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)
