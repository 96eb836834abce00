package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/nutriform/api/internal/domain"
)

const minAccountPasswordLength = 8

// CheckoutServiceDeps bundles the collaborators of the checkout orchestrator.
type CheckoutServiceDeps struct {
	Resolver  CustomerResolver
	Pricing   PricingEngine
	Promos    PromoService
	Assembler OrderAssembler
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	resolver  CustomerResolver
	pricing   PricingEngine
	promos    PromoService
	assembler OrderAssembler
	clock     func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService wires the top-level checkout flow.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Resolver == nil {
		return nil, errors.New("checkout service: customer resolver is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("checkout service: pricing engine is required")
	}
	if deps.Promos == nil {
		return nil, errors.New("checkout service: promo service is required")
	}
	if deps.Assembler == nil {
		return nil, errors.New("checkout service: order assembler is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		resolver:  deps.Resolver,
		pricing:   deps.Pricing,
		promos:    deps.Promos,
		assembler: deps.Assembler,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// Checkout runs validation, promo lookup, customer resolution, pricing, and
// order assembly in sequence. Any failure stops the sequence and reports
// ClearCart=false, so the caller keeps its cart; ClearCart turns true only
// after the assembler confirms the order is durably persisted.
func (s *checkoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error) {
	if s == nil || s.assembler == nil {
		return CheckoutResult{}, errors.New("checkout service not initialised")
	}

	if err := validateCheckout(cmd, s.clock()); err != nil {
		return CheckoutResult{}, err
	}

	promo, err := s.validatePromo(ctx, cmd.Promo.Code)
	if err != nil {
		return CheckoutResult{}, err
	}

	resolveCmd := ResolveCustomerCommand{
		UID:           cmd.Identity.UID,
		Email:         checkoutEmail(cmd),
		Name:          checkoutName(cmd),
		Phone:         cmd.Contact.Phone,
		Address:       cmd.Shipping,
		CreateAccount: cmd.CreateAccount,
		Password:      cmd.Password,
	}
	customer, err := s.resolver.Resolve(ctx, resolveCmd)
	if err != nil {
		return CheckoutResult{}, err
	}

	pricing, err := s.pricing.Price(PricingInputs{
		Subtotal:             cmd.Cart.Subtotal(),
		LineCount:            len(cmd.Cart.Lines),
		PromoDiscountPercent: promo.DiscountPercent,
		BillingCycle:         cmd.Cycle,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	billing := cmd.Shipping
	if cmd.Billing != nil {
		billing = *cmd.Billing
	}

	assembleCmd := AssembleOrderCommand{
		Customer: customer,
		Cart:     cmd.Cart,
		Pricing:  pricing,
		Shipping: cmd.Shipping,
		Billing:  billing,
		Payment:  cmd.Payment,
	}
	if promo.Valid {
		code := promo.Code
		assembleCmd.PromoCode = &code
	}

	assembled, err := s.assembler.Assemble(ctx, assembleCmd)
	if err != nil {
		return CheckoutResult{}, err
	}

	s.logger(ctx, "checkout.completed", map[string]any{
		"orderId":     assembled.Order.ID,
		"orderNumber": assembled.Order.OrderNumber,
		"customerId":  customer.ID,
		"totalAmount": assembled.Order.TotalAmount,
		"warnings":    len(assembled.Warnings),
	})

	return CheckoutResult{
		Order:     assembled.Order,
		Customer:  customer,
		Pricing:   pricing,
		Warnings:  assembled.Warnings,
		ClearCart: true,
	}, nil
}

// validatePromo treats an entered-but-invalid code as a validation failure so
// the shopper can correct it before any write happens. A blank code means no
// promo.
func (s *checkoutService) validatePromo(ctx context.Context, code string) (PromoValidation, error) {
	if strings.TrimSpace(code) == "" {
		return PromoValidation{}, nil
	}
	promo, err := s.promos.Validate(ctx, code)
	if err != nil {
		return PromoValidation{}, err
	}
	if !promo.Valid {
		return PromoValidation{}, fmt.Errorf("%w: %s", ErrCheckoutInvalidInput, promo.Message)
	}
	return promo, nil
}

func validateCheckout(cmd CheckoutCommand, now time.Time) error {
	if len(cmd.Cart.Lines) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrCheckoutInvalidInput)
	}
	for _, line := range cmd.Cart.Lines {
		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %q has quantity %d", ErrCheckoutInvalidInput, line.ProductID, line.Quantity)
		}
	}

	email := checkoutEmail(cmd)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrCheckoutInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: malformed email", ErrCheckoutInvalidInput)
	}

	if err := validateAddress("shipping", cmd.Shipping); err != nil {
		return err
	}
	if cmd.Billing != nil {
		if err := validateAddress("billing", *cmd.Billing); err != nil {
			return err
		}
	}

	if strings.TrimSpace(cmd.Payment.Token) == "" {
		digits := countDigits(cmd.Payment.CardNumber)
		if digits < 12 || digits > 19 {
			return fmt.Errorf("%w: card number is required", ErrCheckoutInvalidInput)
		}
		if cmd.Payment.CardExpMonth < 1 || cmd.Payment.CardExpMonth > 12 {
			return fmt.Errorf("%w: card expiry month is invalid", ErrCheckoutInvalidInput)
		}
		if cmd.Payment.CardExpYear < 2000 {
			return fmt.Errorf("%w: card expiry year is invalid", ErrCheckoutInvalidInput)
		}
		// A card stays usable through the end of its expiry month.
		if cmd.Payment.CardExpYear < now.Year() ||
			(cmd.Payment.CardExpYear == now.Year() && cmd.Payment.CardExpMonth < int(now.Month())) {
			return fmt.Errorf("%w: card is expired", ErrCheckoutInvalidInput)
		}
	}

	if cmd.CreateAccount {
		if strings.TrimSpace(cmd.Identity.UID) != "" {
			return fmt.Errorf("%w: already signed in", ErrCheckoutInvalidInput)
		}
		if len(cmd.Password) < minAccountPasswordLength {
			return fmt.Errorf("%w: password must be at least %d characters", ErrCheckoutInvalidInput, minAccountPasswordLength)
		}
	}

	if cycle := cmd.Cycle; cycle != "" {
		switch cycle {
		case domain.BillingCycleMonthly, domain.BillingCycleQuarterly, domain.BillingCycleYearly:
		default:
			return fmt.Errorf("%w: unknown billing cycle %q", ErrCheckoutInvalidInput, cycle)
		}
	}
	return nil
}

func validateAddress(kind string, address Address) error {
	if strings.TrimSpace(address.Line1) == "" {
		return fmt.Errorf("%w: %s address line is required", ErrCheckoutInvalidInput, kind)
	}
	if strings.TrimSpace(address.City) == "" {
		return fmt.Errorf("%w: %s city is required", ErrCheckoutInvalidInput, kind)
	}
	if strings.TrimSpace(address.PostalCode) == "" {
		return fmt.Errorf("%w: %s postal code is required", ErrCheckoutInvalidInput, kind)
	}
	if strings.TrimSpace(address.Country) == "" {
		return fmt.Errorf("%w: %s country is required", ErrCheckoutInvalidInput, kind)
	}
	return nil
}

func checkoutEmail(cmd CheckoutCommand) string {
	if email := strings.TrimSpace(cmd.Contact.Email); email != "" {
		return strings.ToLower(email)
	}
	return strings.ToLower(strings.TrimSpace(cmd.Identity.Email))
}

func checkoutName(cmd CheckoutCommand) string {
	if name := strings.TrimSpace(cmd.Contact.Name); name != "" {
		return name
	}
	return strings.TrimSpace(cmd.Identity.Name)
}

func countDigits(value string) int {
	count := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}
