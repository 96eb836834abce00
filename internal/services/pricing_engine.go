package services

import (
	"errors"
	"fmt"

	domain "github.com/nutriform/api/internal/domain"
)

// PricingEngineDeps carries the pricing constants. Amounts are cents.
type PricingEngineDeps struct {
	ShippingFlatFee       int64
	FreeShippingThreshold int64
	TaxPercent            int
	BundleDiscountPercent int
}

type pricingEngine struct {
	shippingFlatFee       int64
	freeShippingThreshold int64
	taxPercent            int64
	bundlePercent         int64
}

// NewPricingEngine constructs the storefront pricing engine. The engine is
// pure: every quote is derived from the inputs and the configured constants.
func NewPricingEngine(deps PricingEngineDeps) (PricingEngine, error) {
	if deps.ShippingFlatFee < 0 {
		return nil, errors.New("pricing engine: shipping flat fee must be non-negative")
	}
	if deps.FreeShippingThreshold < 0 {
		return nil, errors.New("pricing engine: free shipping threshold must be non-negative")
	}
	if deps.TaxPercent < 0 || deps.TaxPercent > 100 {
		return nil, errors.New("pricing engine: tax percent out of range")
	}
	if deps.BundleDiscountPercent < 0 || deps.BundleDiscountPercent > 100 {
		return nil, errors.New("pricing engine: bundle discount percent out of range")
	}
	return &pricingEngine{
		shippingFlatFee:       deps.ShippingFlatFee,
		freeShippingThreshold: deps.FreeShippingThreshold,
		taxPercent:            int64(deps.TaxPercent),
		bundlePercent:         int64(deps.BundleDiscountPercent),
	}, nil
}

// Price computes the full monetary breakdown for one checkout quote.
//
// Ordering is load-bearing: the bundle discount comes off the raw subtotal,
// the promo discount off the bundle-adjusted amount, tax is charged on the
// discounted goods value (never on shipping), the shipping threshold is
// evaluated against the raw subtotal, and the billing-cycle multiplier and
// discount are applied last to the whole pre-multiplier total.
func (e *pricingEngine) Price(inputs PricingInputs) (PricingResult, error) {
	if e == nil {
		return PricingResult{}, errors.New("pricing engine not initialised")
	}
	if inputs.Subtotal < 0 {
		return PricingResult{}, fmt.Errorf("%w: negative subtotal", ErrPricingInvalidInput)
	}
	if inputs.LineCount < 0 {
		return PricingResult{}, fmt.Errorf("%w: negative line count", ErrPricingInvalidInput)
	}
	if inputs.PromoDiscountPercent < 0 || inputs.PromoDiscountPercent > 100 {
		return PricingResult{}, fmt.Errorf("%w: promo percent %d out of range", ErrPricingInvalidInput, inputs.PromoDiscountPercent)
	}

	cycle := inputs.BillingCycle
	if cycle == "" {
		cycle = domain.BillingCycleMonthly
	}
	multiplier, cycleDiscountPercent, ok := cycleTerms(cycle)
	if !ok {
		return PricingResult{}, fmt.Errorf("%w: unknown billing cycle %q", ErrPricingInvalidInput, inputs.BillingCycle)
	}

	subtotal := inputs.Subtotal

	var bundleDiscount int64
	if inputs.LineCount > 1 {
		bundleDiscount = subtotal * e.bundlePercent / 100
	}

	promoDiscount := (subtotal - bundleDiscount) * int64(inputs.PromoDiscountPercent) / 100

	// A zero-value cart still pays flat shipping. Callers are expected to
	// guard empty carts before pricing.
	shipping := int64(0)
	if subtotal <= e.freeShippingThreshold {
		shipping = e.shippingFlatFee
	}

	tax := (subtotal - bundleDiscount - promoDiscount) * e.taxPercent / 100

	preMultiplier := subtotal - bundleDiscount - promoDiscount + shipping + tax
	finalTotal := preMultiplier * multiplier * (100 - cycleDiscountPercent) / 100

	return PricingResult{
		Subtotal:           subtotal,
		BundleDiscount:     bundleDiscount,
		PromoDiscount:      promoDiscount,
		Shipping:           shipping,
		Tax:                tax,
		PreMultiplierTotal: preMultiplier,
		FinalTotal:         finalTotal,
		BillingCycle:       cycle,
	}, nil
}

func cycleTerms(cycle BillingCycle) (multiplier int64, discountPercent int64, ok bool) {
	switch cycle {
	case domain.BillingCycleMonthly:
		return 1, 0, true
	case domain.BillingCycleQuarterly:
		return 3, 10, true
	case domain.BillingCycleYearly:
		return 12, 20, true
	default:
		return 0, 0, false
	}
}
