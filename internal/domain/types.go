package domain

import (
	"strings"
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a result slice with the token required to fetch the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// BillingCycle enumerates the supported subscription cadences.
type BillingCycle string

const (
	// BillingCycleMonthly charges the base total once per month.
	BillingCycleMonthly BillingCycle = "monthly"
	// BillingCycleQuarterly charges three months up front with a 10% cycle discount.
	BillingCycleQuarterly BillingCycle = "quarterly"
	// BillingCycleYearly charges twelve months up front with a 20% cycle discount.
	BillingCycleYearly BillingCycle = "yearly"
)

// ParseBillingCycle normalises free-text cycle input. Only the empty string
// defaults to monthly; unrecognised values pass through lowercased so
// validation can reject them instead of charging the wrong cadence.
func ParseBillingCycle(value string) BillingCycle {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return BillingCycleMonthly
	}
	return BillingCycle(normalized)
}

// CartLine is a single product entry inside a cart snapshot.
type CartLine struct {
	ProductID         string
	Name              string
	UnitPrice         int64
	OriginalUnitPrice *int64
	Quantity          int
	InStock           bool
}

// CartSnapshot is the immutable cart state handed to checkout. The
// orchestrator never mutates it; it reports back whether the caller may
// clear its own copy.
type CartSnapshot struct {
	Lines []CartLine
}

// TotalItems sums the quantities across all lines.
func (c CartSnapshot) TotalItems() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// Subtotal sums unit price times quantity across all lines, in cents.
func (c CartSnapshot) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		if line.Quantity <= 0 || line.UnitPrice <= 0 {
			continue
		}
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// Address stores the shipping/billing postal fields captured at checkout.
type Address struct {
	Line1      string
	Line2      *string
	City       string
	State      *string
	PostalCode string
	Country    string
}

// Customer is the storefront's customer record. Guest checkouts create
// records with Authenticated=false which act as shipping/billing snapshots,
// not login-capable accounts.
type Customer struct {
	ID                string
	Email             string
	Name              string
	Phone             *string
	Address           *Address
	PreferredLanguage string
	Authenticated     bool
	OrderCount        int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderStatus enumerates the lifecycle states this core writes. Downstream
// fulfillment owns the remaining transitions.
type OrderStatus string

const (
	// OrderStatusProcessing is the initial status for every persisted order.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusNeedsReconciliation flags an order whose follow-up writes
	// (e.g. subscription creation) failed after the order committed.
	OrderStatusNeedsReconciliation OrderStatus = "needs_reconciliation"
)

// Order is the persisted order header. TotalAmount captures the priced
// final total at submission time and is never recomputed.
type Order struct {
	ID                string
	OrderNumber       string
	CustomerID        string
	Status            OrderStatus
	TotalAmount       int64
	ShippingAmount    int64
	TaxAmount         int64
	DiscountAmount    int64
	PromoCode         *string
	BillingCycle      BillingCycle
	ShippingAddress   Address
	BillingAddress    Address
	Items             []OrderItem
	CreatedAt         time.Time
	EstimatedDelivery time.Time
	TrackingNumber    *string
	Metadata          map[string]any
}

// OrderItem mirrors one cart line at the time of checkout. Immutable after
// creation and always written in the same transaction as its order.
type OrderItem struct {
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	Price       int64
}

// SubscriptionProduct stores a product line carried by a subscription.
type SubscriptionProduct struct {
	ProductID string
	Quantity  int
	Price     int64
}

// Subscription is created for non-monthly billing cycles alongside the order.
type Subscription struct {
	ID              string
	CustomerID      string
	PlanName        string
	BillingCycle    BillingCycle
	MonthlyTotal    int64
	Status          string
	NextBillingDate time.Time
	Products        []SubscriptionProduct
	CreatedAt       time.Time
}

// PaymentMethod stores a saved card reference. No PAN is ever persisted;
// only brand, last four, and expiry survive tokenisation.
type PaymentMethod struct {
	ID             string
	CustomerID     string
	CardLastFour   string
	CardBrand      string
	CardExpMonth   int
	CardExpYear    int
	CardholderName string
	IsDefault      bool
	BillingAddress *Address
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PromoCode is one registry entry consulted by the promo validator.
type PromoCode struct {
	Code            string
	DiscountPercent int
	Message         string
	Active          bool
}

// Product is a catalog entry served to the storefront pages.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         int64
	OriginalPrice *int64
	Category      string
	ImageURL      string
	InStock       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
