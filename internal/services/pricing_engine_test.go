package services

import (
	"errors"
	"testing"

	domain "github.com/nutriform/api/internal/domain"
)

func newTestPricingEngine(t *testing.T) PricingEngine {
	t.Helper()
	engine, err := NewPricingEngine(PricingEngineDeps{
		ShippingFlatFee:       499,
		FreeShippingThreshold: 5000,
		TaxPercent:            8,
		BundleDiscountPercent: 20,
	})
	if err != nil {
		t.Fatalf("NewPricingEngine error: %v", err)
	}
	return engine
}

func TestPricingEngine_MonthlySingleItem(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Price(PricingInputs{
		Subtotal:     6000,
		LineCount:    1,
		BillingCycle: domain.BillingCycleMonthly,
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}

	want := PricingResult{
		Subtotal:           6000,
		BundleDiscount:     0,
		PromoDiscount:      0,
		Shipping:           0,
		Tax:                480,
		PreMultiplierTotal: 6480,
		FinalTotal:         6480,
		BillingCycle:       domain.BillingCycleMonthly,
	}
	if result != want {
		t.Fatalf("result mismatch: want %+v, got %+v", want, result)
	}
}

func TestPricingEngine_QuarterlyBundle(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Price(PricingInputs{
		Subtotal:     10000,
		LineCount:    2,
		BillingCycle: domain.BillingCycleQuarterly,
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}

	if result.BundleDiscount != 2000 {
		t.Fatalf("bundle discount: want 2000, got %d", result.BundleDiscount)
	}
	if result.Tax != 640 {
		t.Fatalf("tax: want 640, got %d", result.Tax)
	}
	if result.PreMultiplierTotal != 8640 {
		t.Fatalf("pre-multiplier total: want 8640, got %d", result.PreMultiplierTotal)
	}
	if result.FinalTotal != 23328 {
		t.Fatalf("final total: want 23328, got %d", result.FinalTotal)
	}
}

func TestPricingEngine_BundleRequiresMultipleLines(t *testing.T) {
	engine := newTestPricingEngine(t)

	single, err := engine.Price(PricingInputs{Subtotal: 10000, LineCount: 1})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if single.BundleDiscount != 0 {
		t.Fatalf("single line cart must not get a bundle discount, got %d", single.BundleDiscount)
	}

	multi, err := engine.Price(PricingInputs{Subtotal: 10000, LineCount: 3})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if multi.BundleDiscount != 2000 {
		t.Fatalf("bundle discount: want 2000, got %d", multi.BundleDiscount)
	}
}

func TestPricingEngine_PromoStacksOnBundleAdjustedAmount(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Price(PricingInputs{
		Subtotal:             10000,
		LineCount:            2,
		PromoDiscountPercent: 10,
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}

	// 10% of the bundle-adjusted 8000, not of the raw 10000.
	if result.PromoDiscount != 800 {
		t.Fatalf("promo discount: want 800, got %d", result.PromoDiscount)
	}
	if result.PromoDiscount > result.Subtotal-result.BundleDiscount {
		t.Fatalf("promo discount %d exceeds bundle-adjusted amount", result.PromoDiscount)
	}
	if result.TotalDiscount() != 2800 {
		t.Fatalf("total discount: want 2800, got %d", result.TotalDiscount())
	}
}

func TestPricingEngine_ShippingThresholdBoundary(t *testing.T) {
	engine := newTestPricingEngine(t)

	cases := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{name: "below threshold", subtotal: 1000, want: 499},
		{name: "at threshold", subtotal: 5000, want: 499},
		{name: "just above threshold", subtotal: 5001, want: 0},
		{name: "far above threshold", subtotal: 20000, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := engine.Price(PricingInputs{Subtotal: tc.subtotal, LineCount: 1})
			if err != nil {
				t.Fatalf("Price error: %v", err)
			}
			if result.Shipping != tc.want {
				t.Fatalf("shipping for subtotal %d: want %d, got %d", tc.subtotal, tc.want, result.Shipping)
			}
		})
	}
}

func TestPricingEngine_ShippingThresholdUsesRawSubtotal(t *testing.T) {
	engine := newTestPricingEngine(t)

	// Discounts pull the payable amount below the threshold, but the
	// threshold is evaluated against the raw subtotal.
	result, err := engine.Price(PricingInputs{
		Subtotal:             5200,
		LineCount:            3,
		PromoDiscountPercent: 50,
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if result.Shipping != 0 {
		t.Fatalf("shipping: want 0 for raw subtotal above threshold, got %d", result.Shipping)
	}
}

func TestPricingEngine_EmptyCartStillPaysShipping(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Price(PricingInputs{Subtotal: 0, LineCount: 0})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if result.Shipping != 499 {
		t.Fatalf("shipping: want 499 for zero subtotal, got %d", result.Shipping)
	}
	if result.Tax != 0 || result.BundleDiscount != 0 || result.PromoDiscount != 0 {
		t.Fatalf("zero subtotal must not produce tax or discounts: %+v", result)
	}
	if result.FinalTotal != 499 {
		t.Fatalf("final total: want 499, got %d", result.FinalTotal)
	}
}

func TestPricingEngine_YearlyCycle(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Price(PricingInputs{
		Subtotal:     10000,
		LineCount:    1,
		BillingCycle: domain.BillingCycleYearly,
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}

	// pre = 10000 + 800 tax = 10800; final = 10800 * 12 * 80%.
	if result.PreMultiplierTotal != 10800 {
		t.Fatalf("pre-multiplier total: want 10800, got %d", result.PreMultiplierTotal)
	}
	if result.FinalTotal != 103680 {
		t.Fatalf("final total: want 103680, got %d", result.FinalTotal)
	}
}

func TestPricingEngine_InvalidInputs(t *testing.T) {
	engine := newTestPricingEngine(t)

	cases := []struct {
		name   string
		inputs PricingInputs
	}{
		{name: "negative subtotal", inputs: PricingInputs{Subtotal: -1}},
		{name: "negative line count", inputs: PricingInputs{Subtotal: 100, LineCount: -1}},
		{name: "promo percent above 100", inputs: PricingInputs{Subtotal: 100, LineCount: 1, PromoDiscountPercent: 101}},
		{name: "unknown cycle", inputs: PricingInputs{Subtotal: 100, LineCount: 1, BillingCycle: "weekly"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Price(tc.inputs); !errors.Is(err, ErrPricingInvalidInput) {
				t.Fatalf("expected ErrPricingInvalidInput, got %v", err)
			}
		})
	}
}

func TestPricingEngine_DefaultsToMonthly(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Price(PricingInputs{Subtotal: 6000, LineCount: 1})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if result.BillingCycle != domain.BillingCycleMonthly {
		t.Fatalf("billing cycle: want monthly, got %s", result.BillingCycle)
	}
	if result.FinalTotal != 6480 {
		t.Fatalf("final total: want 6480, got %d", result.FinalTotal)
	}
}
