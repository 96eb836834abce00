package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/platform/auth"
	"github.com/nutriform/api/internal/platform/httpx"
	"github.com/nutriform/api/internal/services"
)

const maxCheckoutBodySize = 256 * 1024

// CheckoutHandlers exposes the storefront checkout endpoint. Guests and
// authenticated customers share it; auth is optional but never silently
// degraded.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs the checkout endpoint handlers.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{authn: authn, checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.OptionalAuth())
	}
	r.Post("/", h.submit)
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		status := http.StatusBadRequest
		code := "invalid_request"
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
			code = "payload_too_large"
		}
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), status))
		return
	}

	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	cmd := req.toCommand()
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity.Valid() {
		cmd.Identity = services.CheckoutIdentity{
			UID:   identity.UID,
			Email: identity.Email,
			Name:  identity.Name,
		}
	}

	result, err := h.checkout.Checkout(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildCheckoutResponse(result))
}

type checkoutRequest struct {
	Cart struct {
		Items []checkoutItemRequest `json:"items"`
	} `json:"cart"`
	ShippingAddress addressPayload  `json:"shipping_address"`
	BillingAddress  *addressPayload `json:"billing_address"`
	Contact         struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"contact"`
	Payment struct {
		Token          string `json:"token"`
		CardNumber     string `json:"card_number"`
		CardExpMonth   int    `json:"card_exp_month"`
		CardExpYear    int    `json:"card_exp_year"`
		CardholderName string `json:"cardholder_name"`
		SaveCard       bool   `json:"save_card"`
	} `json:"payment"`
	PromoCode     string `json:"promo_code"`
	BillingCycle  string `json:"billing_cycle"`
	CreateAccount bool   `json:"create_account"`
	Password      string `json:"password"`
}

type checkoutItemRequest struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	OriginalPrice *int64 `json:"original_price"`
	Quantity      int    `json:"quantity"`
	InStock       bool   `json:"in_stock"`
}

func (req checkoutRequest) toCommand() services.CheckoutCommand {
	lines := make([]domain.CartLine, 0, len(req.Cart.Items))
	for _, item := range req.Cart.Items {
		lines = append(lines, domain.CartLine{
			ProductID:         strings.TrimSpace(item.ProductID),
			Name:              strings.TrimSpace(item.Name),
			UnitPrice:         item.Price,
			OriginalUnitPrice: item.OriginalPrice,
			Quantity:          item.Quantity,
			InStock:           item.InStock,
		})
	}

	cmd := services.CheckoutCommand{
		Cart:     domain.CartSnapshot{Lines: lines},
		Shipping: req.ShippingAddress.toDomain(),
		Contact: services.CheckoutContact{
			Email: strings.TrimSpace(req.Contact.Email),
			Name:  strings.TrimSpace(req.Contact.Name),
			Phone: strings.TrimSpace(req.Contact.Phone),
		},
		Payment: services.CheckoutPayment{
			Token:          strings.TrimSpace(req.Payment.Token),
			CardNumber:     strings.TrimSpace(req.Payment.CardNumber),
			CardExpMonth:   req.Payment.CardExpMonth,
			CardExpYear:    req.Payment.CardExpYear,
			CardholderName: strings.TrimSpace(req.Payment.CardholderName),
			SaveCard:       req.Payment.SaveCard,
		},
		Promo:         services.CheckoutPromo{Code: strings.TrimSpace(req.PromoCode)},
		Cycle:         domain.ParseBillingCycle(req.BillingCycle),
		CreateAccount: req.CreateAccount,
		Password:      req.Password,
	}
	if req.BillingAddress != nil {
		billing := req.BillingAddress.toDomain()
		cmd.Billing = &billing
	}
	return cmd
}

type checkoutResponse struct {
	Order    orderPayload   `json:"order"`
	Pricing  pricingPayload `json:"pricing"`
	Customer struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Authenticated bool   `json:"authenticated"`
	} `json:"customer"`
	Warnings  []string `json:"warnings,omitempty"`
	ClearCart bool     `json:"clear_cart"`
}

type pricingPayload struct {
	Subtotal           int64  `json:"subtotal"`
	BundleDiscount     int64  `json:"bundle_discount"`
	PromoDiscount      int64  `json:"promo_discount"`
	Shipping           int64  `json:"shipping"`
	Tax                int64  `json:"tax"`
	PreMultiplierTotal int64  `json:"pre_multiplier_total"`
	FinalTotal         int64  `json:"final_total"`
	BillingCycle       string `json:"billing_cycle"`
}

func buildCheckoutResponse(result services.CheckoutResult) checkoutResponse {
	resp := checkoutResponse{
		Order: buildOrderPayload(result.Order),
		Pricing: pricingPayload{
			Subtotal:           result.Pricing.Subtotal,
			BundleDiscount:     result.Pricing.BundleDiscount,
			PromoDiscount:      result.Pricing.PromoDiscount,
			Shipping:           result.Pricing.Shipping,
			Tax:                result.Pricing.Tax,
			PreMultiplierTotal: result.Pricing.PreMultiplierTotal,
			FinalTotal:         result.Pricing.FinalTotal,
			BillingCycle:       string(result.Pricing.BillingCycle),
		},
		Warnings:  result.Warnings,
		ClearCart: result.ClearCart,
	}
	resp.Customer.ID = result.Customer.ID
	resp.Customer.Email = result.Customer.Email
	resp.Customer.Authenticated = result.Customer.Authenticated
	return resp
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_checkout", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomerAlreadyExists):
		httpx.WriteError(ctx, w, httpx.NewError("account_exists", "an account already exists for this email", http.StatusConflict))
	case errors.Is(err, services.ErrCustomerResolveFailed):
		httpx.WriteError(ctx, w, httpx.NewError("customer_resolve_failed", "failed to create user account", http.StatusInternalServerError))
	case errors.Is(err, services.ErrOrderNumberExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "could not allocate an order number", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrOrderCreateFailed):
		httpx.WriteError(ctx, w, httpx.NewError("order_create_failed", "failed to create order", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_failed", err.Error(), http.StatusInternalServerError))
	}
}
