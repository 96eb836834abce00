package domain

// PricingInputs carries everything the pricing engine needs to quote a cart.
// LineCount is the number of distinct cart lines, not the summed quantity;
// bundle eligibility is decided on distinct lines.
type PricingInputs struct {
	Subtotal             int64
	LineCount            int
	PromoDiscountPercent int
	BillingCycle         BillingCycle
}

// PricingResult is the full monetary breakdown of a checkout quote, in cents.
// Discounts are positive amounts that were subtracted, never negative fields.
type PricingResult struct {
	Subtotal           int64
	BundleDiscount     int64
	PromoDiscount      int64
	Shipping           int64
	Tax                int64
	PreMultiplierTotal int64
	FinalTotal         int64
	BillingCycle       BillingCycle
}

// TotalDiscount sums the bundle and promo reductions.
func (r PricingResult) TotalDiscount() int64 {
	return r.BundleDiscount + r.PromoDiscount
}
