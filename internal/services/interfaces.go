package services

import (
	"context"
	"time"

	domain "github.com/nutriform/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination    = domain.Pagination
	BillingCycle  = domain.BillingCycle
	CartLine      = domain.CartLine
	CartSnapshot  = domain.CartSnapshot
	Address       = domain.Address
	Customer      = domain.Customer
	Order         = domain.Order
	OrderItem     = domain.OrderItem
	OrderStatus   = domain.OrderStatus
	Subscription  = domain.Subscription
	PaymentMethod = domain.PaymentMethod
	PromoCode     = domain.PromoCode
	Product       = domain.Product
	PricingInputs = domain.PricingInputs
	PricingResult = domain.PricingResult
)

// PricingEngine computes order totals from an immutable pricing input set.
type PricingEngine interface {
	Price(inputs PricingInputs) (PricingResult, error)
}

// PromoService resolves promo codes into their discount terms.
type PromoService interface {
	Validate(ctx context.Context, code string) (PromoValidation, error)
}

// PromoValidation is the outcome of a promo code lookup.
type PromoValidation struct {
	Valid           bool
	Code            string
	DiscountPercent int
	Message         string
}

// OrderNumberGenerator produces order numbers unique within the store.
type OrderNumberGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// CustomerResolver locates or creates the customer record a checkout is
// attributed to.
type CustomerResolver interface {
	Resolve(ctx context.Context, cmd ResolveCustomerCommand) (Customer, error)
}

// OrderAssembler persists the order and its satellite records in a defined
// sequence once the customer and pricing are known.
type OrderAssembler interface {
	Assemble(ctx context.Context, cmd AssembleOrderCommand) (AssembledOrder, error)
}

// AssembleOrderCommand carries everything the assembler writes from. All
// fields are immutable inputs.
type AssembleOrderCommand struct {
	Customer  Customer
	Cart      CartSnapshot
	Pricing   PricingResult
	PromoCode *string
	Shipping  Address
	Billing   Address
	Payment   CheckoutPayment
}

// AssembledOrder reports a committed order plus any non-critical follow-up
// failures.
type AssembledOrder struct {
	Order    Order
	Warnings []string
}

// CheckoutService runs the storefront checkout flow end to end.
type CheckoutService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error)
}

// OrderService serves customer-facing order history reads.
type OrderService interface {
	ListOrders(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, customerID string, orderNumber string) (Order, error)
}

// UserService manages profile and saved payment method surfaces.
type UserService interface {
	GetProfile(ctx context.Context, customerID string) (Customer, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (Customer, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, customerID string, paymentMethodID string) (PaymentMethod, error)
	RemovePaymentMethod(ctx context.Context, customerID string, paymentMethodID string) error
}

// CatalogService serves read-only product listings.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error)
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// OrderEventPublisher accepts order lifecycle notifications for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the payload published after an order commit.
type OrderEventMessage struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	CustomerID  string    `json:"customerId"`
	TotalAmount int64     `json:"totalAmount"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Order lifecycle event names carried on OrderEventMessage.
const (
	OrderEventCreated             = "order.created"
	OrderEventNeedsReconciliation = "order.needs_reconciliation"
)

// PaymentMethodLookup fetches card metadata for a PSP token.
type PaymentMethodLookup interface {
	Lookup(ctx context.Context, token string) (PaymentMethodDetails, error)
}

// PaymentMethodDetails captures PSP-sourced metadata for a payment instrument.
type PaymentMethodDetails struct {
	Token    string
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// ResolveCustomerCommand carries the identity facts a checkout submits.
type ResolveCustomerCommand struct {
	// UID is set when the request carried a verified login token.
	UID           string
	Email         string
	Name          string
	Phone         string
	Address       Address
	CreateAccount bool
	Password      string
}

// CheckoutCommand is the full, immutable input of one checkout attempt.
type CheckoutCommand struct {
	Identity CheckoutIdentity
	Cart     CartSnapshot
	Shipping Address
	Billing  *Address
	Contact  CheckoutContact
	Payment  CheckoutPayment
	Promo    CheckoutPromo
	Cycle    BillingCycle

	CreateAccount bool
	Password      string
}

// CheckoutIdentity carries the verified login identity, if any.
type CheckoutIdentity struct {
	UID   string
	Email string
	Name  string
}

// CheckoutContact is the contact block of a checkout submission.
type CheckoutContact struct {
	Email string
	Name  string
	Phone string
}

// CheckoutPayment identifies the instrument used for the order. Either a PSP
// token or raw card entry fields are provided, never both.
type CheckoutPayment struct {
	Token          string
	CardNumber     string
	CardExpMonth   int
	CardExpYear    int
	CardholderName string
	SaveCard       bool
}

// CheckoutPromo is the promo state the storefront client submits: the code the
// shopper applied plus the discount the client showed. The server re-validates
// and never trusts the client percentage.
type CheckoutPromo struct {
	Code string
}

// CheckoutResult reports a committed checkout.
type CheckoutResult struct {
	Order    Order
	Customer Customer
	Pricing  PricingResult
	// Warnings lists non-critical post-commit steps that failed. The order
	// itself is committed whenever a result is returned.
	Warnings []string
	// ClearCart reports whether the storefront should drop its cart state.
	ClearCart bool
}

// UpdateProfileCommand mutates the editable profile fields.
type UpdateProfileCommand struct {
	CustomerID string
	Name       *string
	Phone      *string
	Language   *string
	Address    *Address
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category    string
	InStockOnly bool
	Pagination  Pagination
}
