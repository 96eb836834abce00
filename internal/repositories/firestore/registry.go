package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	customers      *CustomerRepository
	orders         *OrderRepository
	subscriptions  *SubscriptionRepository
	paymentMethods *PaymentMethodRepository
	promoCodes     repositories.PromoCodeRepository
	orderNumbers   *OrderNumberRepository
	catalog        *CatalogRepository
}

// RegistryOption customises registry construction.
type RegistryOption func(*Registry)

// WithPromoCodeRepository overrides the promo registry lookup, e.g. with a
// config-seeded in-memory registry.
func WithPromoCodeRepository(repo repositories.PromoCodeRepository) RegistryOption {
	return func(r *Registry) {
		if repo != nil {
			r.promoCodes = repo
		}
	}
}

// NewRegistry wires every Firestore repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("repository registry requires firestore provider")
	}

	customers, err := NewCustomerRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	subscriptions, err := NewSubscriptionRepository(provider)
	if err != nil {
		return nil, err
	}
	paymentMethods, err := NewPaymentMethodRepository(provider)
	if err != nil {
		return nil, err
	}
	promoCodes, err := NewPromoCodeRepository(provider)
	if err != nil {
		return nil, err
	}
	orderNumbers, err := NewOrderNumberRepository(provider)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		return nil, err
	}

	registry := &Registry{
		provider:       provider,
		customers:      customers,
		orders:         orders,
		subscriptions:  subscriptions,
		paymentMethods: paymentMethods,
		promoCodes:     promoCodes,
		orderNumbers:   orderNumbers,
		catalog:        catalog,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	return registry, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Customers returns the customer repository.
func (r *Registry) Customers() repositories.CustomerRepository { return r.customers }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Subscriptions returns the subscription repository.
func (r *Registry) Subscriptions() repositories.SubscriptionRepository { return r.subscriptions }

// PaymentMethods returns the payment method repository.
func (r *Registry) PaymentMethods() repositories.PaymentMethodRepository { return r.paymentMethods }

// PromoCodes returns the promo registry lookup.
func (r *Registry) PromoCodes() repositories.PromoCodeRepository { return r.promoCodes }

// OrderNumbers returns the order number reservation repository.
func (r *Registry) OrderNumbers() repositories.OrderNumberRepository { return r.orderNumbers }

// Catalog returns the product catalog repository.
func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }

var _ repositories.Registry = (*Registry)(nil)
