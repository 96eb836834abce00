package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nutriform/api/internal/platform/auth"
	"github.com/nutriform/api/internal/platform/config"
	"github.com/nutriform/api/internal/platform/observability"
	"github.com/nutriform/api/internal/repositories"
	"github.com/nutriform/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog  services.CatalogService
	Promos   services.PromoService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Users    services.UserService
}

// Deps carries the runtime collaborators the container itself does not build:
// external clients owned by main and released there.
type Deps struct {
	Registry repositories.Registry
	// Accounts provisions Firebase accounts for guests opting in. Optional;
	// without it guest account creation fails at request time.
	Accounts auth.AccountProvisioner
	// Cards resolves PSP tokens into card metadata. Optional.
	Cards services.PaymentMethodLookup
	// Publisher emits order lifecycle events. Optional.
	Publisher services.OrderEventPublisher
	Logger    *zap.Logger
}

// Container wires repositories, services, and supporting infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(cfg config.Config, deps Deps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, deps Deps) (Services, error) {
	var svc Services
	reg := deps.Registry
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: reg.Catalog(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	promoSvc, err := services.NewPromoService(services.PromoServiceDeps{
		PromoCodes: reg.PromoCodes(),
		Logger:     observability.ServiceLogger(logger.Named("promo")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build promo service: %w", err)
	}
	svc.Promos = promoSvc

	pricing, err := services.NewPricingEngine(services.PricingEngineDeps{
		ShippingFlatFee:       cfg.Checkout.ShippingFlatFee,
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		TaxPercent:            cfg.Checkout.TaxPercent,
		BundleDiscountPercent: cfg.Checkout.BundleDiscountPercent,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pricing engine: %w", err)
	}

	orderNumbers, err := services.NewOrderNumberGenerator(services.OrderNumberGeneratorDeps{
		OrderNumbers: reg.OrderNumbers(),
		Clock:        time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order number generator: %w", err)
	}

	resolver, err := services.NewCustomerResolver(services.CustomerResolverDeps{
		Customers: reg.Customers(),
		Accounts:  deps.Accounts,
		Clock:     time.Now,
		Logger:    observability.ServiceLogger(logger.Named("customer")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build customer resolver: %w", err)
	}

	assembler, err := services.NewOrderAssembler(services.OrderAssemblerDeps{
		Orders:         reg.Orders(),
		Customers:      reg.Customers(),
		Subscriptions:  reg.Subscriptions(),
		PaymentMethods: reg.PaymentMethods(),
		OrderNumbers:   orderNumbers,
		Cards:          deps.Cards,
		Publisher:      deps.Publisher,
		Clock:          time.Now,
		Logger:         observability.ServiceLogger(logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order assembler: %w", err)
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Resolver:  resolver,
		Pricing:   pricing,
		Promos:    promoSvc,
		Assembler: assembler,
		Clock:     time.Now,
		Logger:    observability.ServiceLogger(logger.Named("checkout")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: reg.Orders(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Customers:      reg.Customers(),
		PaymentMethods: reg.PaymentMethods(),
		Clock:          time.Now,
		Logger:         observability.ServiceLogger(logger.Named("profile")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	return svc, nil
}
