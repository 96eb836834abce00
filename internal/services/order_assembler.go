package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/repositories"
)

const estimatedDeliveryWindow = 7 * 24 * time.Hour

// OrderAssemblerDeps bundles dependencies required to construct an OrderAssembler.
type OrderAssemblerDeps struct {
	Orders         repositories.OrderRepository
	Customers      repositories.CustomerRepository
	Subscriptions  repositories.SubscriptionRepository
	PaymentMethods repositories.PaymentMethodRepository
	OrderNumbers   OrderNumberGenerator
	// Cards resolves PSP tokens into card metadata. Optional; raw card
	// fields are derived locally when absent.
	Cards PaymentMethodLookup
	// Publisher emits order lifecycle events. Optional.
	Publisher OrderEventPublisher
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
	NewID     func() string
}

type orderAssembler struct {
	orders         repositories.OrderRepository
	customers      repositories.CustomerRepository
	subscriptions  repositories.SubscriptionRepository
	paymentMethods repositories.PaymentMethodRepository
	orderNumbers   OrderNumberGenerator
	cards          PaymentMethodLookup
	publisher      OrderEventPublisher
	clock          func() time.Time
	logger         func(ctx context.Context, event string, fields map[string]any)
	newID          func() string
}

// NewOrderAssembler wires the order persistence sequence.
func NewOrderAssembler(deps OrderAssemblerDeps) (OrderAssembler, error) {
	if deps.Orders == nil {
		return nil, errors.New("order assembler: order repository is required")
	}
	if deps.Customers == nil {
		return nil, errors.New("order assembler: customer repository is required")
	}
	if deps.Subscriptions == nil {
		return nil, errors.New("order assembler: subscription repository is required")
	}
	if deps.PaymentMethods == nil {
		return nil, errors.New("order assembler: payment method repository is required")
	}
	if deps.OrderNumbers == nil {
		return nil, errors.New("order assembler: order number generator is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &orderAssembler{
		orders:         deps.Orders,
		customers:      deps.Customers,
		subscriptions:  deps.Subscriptions,
		paymentMethods: deps.PaymentMethods,
		orderNumbers:   deps.OrderNumbers,
		cards:          deps.Cards,
		publisher:      deps.Publisher,
		clock:          func() time.Time { return clock().UTC() },
		logger:         logger,
		newID:          newID,
	}, nil
}

// Assemble persists the order in a fixed sequence: reserve an order number,
// optionally save the card, commit the order with its items atomically, then
// run the post-commit effects. The order and items commit together; if a
// post-commit effect tagged critical fails, the order is marked
// needs_reconciliation instead of being left silently inconsistent.
// Non-critical failures are collected as warnings and never fail the
// checkout.
func (a *orderAssembler) Assemble(ctx context.Context, cmd AssembleOrderCommand) (AssembledOrder, error) {
	if a == nil || a.orders == nil {
		return AssembledOrder{}, errors.New("order assembler not initialised")
	}
	if strings.TrimSpace(cmd.Customer.ID) == "" {
		return AssembledOrder{}, fmt.Errorf("%w: customer is required", ErrCheckoutInvalidInput)
	}
	if len(cmd.Cart.Lines) == 0 {
		return AssembledOrder{}, fmt.Errorf("%w: cart is empty", ErrCheckoutInvalidInput)
	}

	orderNumber, err := a.orderNumbers.Generate(ctx)
	if err != nil {
		return AssembledOrder{}, fmt.Errorf("%w: reserve order number: %v", ErrOrderCreateFailed, err)
	}

	var warnings []string
	if cmd.Payment.SaveCard {
		if warning := a.saveCard(ctx, cmd); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	now := a.clock()
	order := a.buildOrder(cmd, orderNumber, now)
	if err := a.orders.InsertWithItems(ctx, order); err != nil {
		return AssembledOrder{}, fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
	}

	warnings = append(warnings, a.runPostCommit(ctx, cmd, &order, now)...)

	return AssembledOrder{Order: order, Warnings: warnings}, nil
}

func (a *orderAssembler) buildOrder(cmd AssembleOrderCommand, orderNumber string, now time.Time) domain.Order {
	order := domain.Order{
		ID:                a.newID(),
		OrderNumber:       orderNumber,
		CustomerID:        cmd.Customer.ID,
		Status:            domain.OrderStatusProcessing,
		TotalAmount:       cmd.Pricing.FinalTotal,
		ShippingAmount:    cmd.Pricing.Shipping,
		TaxAmount:         cmd.Pricing.Tax,
		DiscountAmount:    cmd.Pricing.TotalDiscount(),
		PromoCode:         cmd.PromoCode,
		BillingCycle:      cmd.Pricing.BillingCycle,
		ShippingAddress:   cmd.Shipping,
		BillingAddress:    cmd.Billing,
		CreatedAt:         now,
		EstimatedDelivery: now.Add(estimatedDeliveryWindow),
	}
	for _, line := range cmd.Cart.Lines {
		order.Items = append(order.Items, domain.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
		})
	}
	return order
}

// saveCard persists the entered card as a saved payment method. Only
// authenticated customers can save cards, and a failure here never blocks
// the order.
func (a *orderAssembler) saveCard(ctx context.Context, cmd AssembleOrderCommand) string {
	if !cmd.Customer.Authenticated {
		return ""
	}

	details, err := a.cardDetails(ctx, cmd.Payment)
	if err != nil {
		a.logger(ctx, "checkout.card_lookup_failed", map[string]any{
			"customerId": cmd.Customer.ID,
			"error":      err.Error(),
		})
		return "payment method not saved: card lookup failed"
	}

	billing := cmd.Billing
	method := domain.PaymentMethod{
		CustomerID:     cmd.Customer.ID,
		CardLastFour:   details.Last4,
		CardBrand:      details.Brand,
		CardExpMonth:   details.ExpMonth,
		CardExpYear:    details.ExpYear,
		CardholderName: strings.TrimSpace(cmd.Payment.CardholderName),
		BillingAddress: &billing,
	}
	if _, err := a.paymentMethods.Insert(ctx, cmd.Customer.ID, method); err != nil {
		a.logger(ctx, "checkout.save_card_failed", map[string]any{
			"customerId": cmd.Customer.ID,
			"error":      err.Error(),
		})
		return "payment method not saved"
	}
	return ""
}

func (a *orderAssembler) cardDetails(ctx context.Context, payment CheckoutPayment) (PaymentMethodDetails, error) {
	if token := strings.TrimSpace(payment.Token); token != "" && a.cards != nil {
		return a.cards.Lookup(ctx, token)
	}
	return deriveCardDetails(payment.CardNumber, payment.CardExpMonth, payment.CardExpYear), nil
}

// runPostCommit executes the effects that follow a durable order commit.
// Subscription creation is critical: its failure marks the order for
// reconciliation. The counter bump and the published event are bookkeeping.
func (a *orderAssembler) runPostCommit(ctx context.Context, cmd AssembleOrderCommand, order *domain.Order, now time.Time) []string {
	var warnings []string

	if err := a.customers.IncrementOrderCount(ctx, cmd.Customer.ID); err != nil {
		a.logger(ctx, "checkout.order_counter_failed", map[string]any{
			"customerId": cmd.Customer.ID,
			"orderId":    order.ID,
			"error":      err.Error(),
		})
		warnings = append(warnings, "order counter not updated")
	}

	if order.BillingCycle != domain.BillingCycleMonthly {
		if err := a.createSubscription(ctx, cmd, *order, now); err != nil {
			a.logger(ctx, "checkout.subscription_failed", map[string]any{
				"customerId": cmd.Customer.ID,
				"orderId":    order.ID,
				"error":      err.Error(),
			})
			warnings = append(warnings, "subscription not created; order flagged for reconciliation")
			a.markForReconciliation(ctx, order, "subscription creation failed", now)
		}
	}

	a.publish(ctx, OrderEventMessage{
		Event:       OrderEventCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		OccurredAt:  now,
	}, &warnings)

	return warnings
}

func (a *orderAssembler) createSubscription(ctx context.Context, cmd AssembleOrderCommand, order domain.Order, now time.Time) error {
	sub := domain.Subscription{
		ID:              a.newID(),
		CustomerID:      cmd.Customer.ID,
		PlanName:        fmt.Sprintf("%s plan", order.BillingCycle),
		BillingCycle:    order.BillingCycle,
		MonthlyTotal:    cmd.Pricing.PreMultiplierTotal,
		Status:          "active",
		NextBillingDate: nextBillingDate(now, order.BillingCycle),
		CreatedAt:       now,
	}
	for _, line := range cmd.Cart.Lines {
		sub.Products = append(sub.Products, domain.SubscriptionProduct{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
		})
	}
	_, err := a.subscriptions.Insert(ctx, sub)
	return err
}

func (a *orderAssembler) markForReconciliation(ctx context.Context, order *domain.Order, reason string, now time.Time) {
	if err := a.orders.MarkNeedsReconciliation(ctx, order.ID, reason, now); err != nil {
		a.logger(ctx, "checkout.reconciliation_mark_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return
	}
	order.Status = domain.OrderStatusNeedsReconciliation

	msg := OrderEventMessage{
		Event:       OrderEventNeedsReconciliation,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Reason:      reason,
		OccurredAt:  now,
	}
	a.publish(ctx, msg, nil)
}

func (a *orderAssembler) publish(ctx context.Context, message OrderEventMessage, warnings *[]string) {
	if a.publisher == nil {
		return
	}
	if _, err := a.publisher.PublishOrderEvent(ctx, message); err != nil {
		a.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"event":   message.Event,
			"orderId": message.OrderID,
			"error":   err.Error(),
		})
		if warnings != nil {
			*warnings = append(*warnings, "order event not published")
		}
	}
}

// nextBillingDate follows the cadence windows: monthly +30d, quarterly +90d,
// yearly +365d.
func nextBillingDate(from time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case domain.BillingCycleQuarterly:
		return from.Add(90 * 24 * time.Hour)
	case domain.BillingCycleYearly:
		return from.Add(365 * 24 * time.Hour)
	default:
		return from.Add(30 * 24 * time.Hour)
	}
}

// deriveCardDetails builds payment instrument metadata from raw card entry
// fields. Only the last four digits are retained.
func deriveCardDetails(number string, expMonth, expYear int) PaymentMethodDetails {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	details := PaymentMethodDetails{
		Brand:    cardBrand(digits),
		ExpMonth: expMonth,
		ExpYear:  expYear,
	}
	if len(digits) >= 4 {
		details.Last4 = digits[len(digits)-4:]
	}
	return details
}

func cardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case prefixInRange(digits, 51, 55), prefixInRange(digits, 2221, 2720):
		return "mastercard"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "amex"
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"):
		return "discover"
	default:
		return "card"
	}
}

func prefixInRange(digits string, lo, hi int) bool {
	width := len(strconv.Itoa(lo))
	if len(digits) < width {
		return false
	}
	prefix, err := strconv.Atoi(digits[:width])
	if err != nil {
		return false
	}
	return prefix >= lo && prefix <= hi
}
