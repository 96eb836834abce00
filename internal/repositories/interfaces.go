package repositories

import (
	"context"
	"time"

	domain "github.com/nutriform/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for
// dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Customers() CustomerRepository
	Orders() OrderRepository
	Subscriptions() SubscriptionRepository
	PaymentMethods() PaymentMethodRepository
	PromoCodes() PromoCodeRepository
	OrderNumbers() OrderNumberRepository
	Catalog() CatalogRepository
}

// RepositoryError wraps low-level persistence failures with the
// categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CustomerRepository stores customer records. Guest shipping records and
// login-capable accounts share the same collection, distinguished by the
// Authenticated flag.
type CustomerRepository interface {
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (domain.Customer, error)
	Insert(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	Update(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	IncrementOrderCount(ctx context.Context, customerID string) error
}

// OrderRepository persists order headers and their line items. InsertWithItems
// writes the header and every item in one transaction so an order is never
// visible without its items.
type OrderRepository interface {
	InsertWithItems(ctx context.Context, order domain.Order) error
	FindByNumber(ctx context.Context, customerID string, orderNumber string) (domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	MarkNeedsReconciliation(ctx context.Context, orderID string, reason string, at time.Time) error
}

// SubscriptionRepository persists recurring-delivery subscriptions.
type SubscriptionRepository interface {
	Insert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Subscription, error)
}

// PaymentMethodRepository stores saved card references per customer.
// Insert and SetDefault maintain the at-most-one-default invariant inside a
// transaction; Deactivate is a soft delete.
type PaymentMethodRepository interface {
	List(ctx context.Context, customerID string) ([]domain.PaymentMethod, error)
	Insert(ctx context.Context, customerID string, method domain.PaymentMethod) (domain.PaymentMethod, error)
	SetDefault(ctx context.Context, customerID string, paymentMethodID string) (domain.PaymentMethod, error)
	Deactivate(ctx context.Context, customerID string, paymentMethodID string) error
}

// PromoCodeRepository is the injectable promo registry lookup. Codes are
// stored uppercased; FindByCode callers normalise before calling.
type PromoCodeRepository interface {
	FindByCode(ctx context.Context, code string) (domain.PromoCode, error)
}

// OrderNumberRepository is the storage-level uniqueness backstop for
// generated order numbers. Register fails with a conflict when the number
// was already taken.
type OrderNumberRepository interface {
	Register(ctx context.Context, orderNumber string, at time.Time) error
}

// CatalogRepository serves read-only product data to the storefront.
type CatalogRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[domain.Product], error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category    string
	InStockOnly bool
	Pagination  domain.Pagination
}
