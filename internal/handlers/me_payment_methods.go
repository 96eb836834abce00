package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/platform/auth"
	"github.com/nutriform/api/internal/platform/httpx"
)

func (h *MeHandlers) paymentMethodRoutes(r chi.Router) {
	r.Get("/", h.listPaymentMethods)
	r.Route("/{paymentMethodID}", func(r chi.Router) {
		r.Post("/default", h.setDefaultPaymentMethod)
		r.Delete("/", h.removePaymentMethod)
	})
}

func (h *MeHandlers) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || !identity.Valid() {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	methods, err := h.users.ListPaymentMethods(ctx, identity.UID)
	if err != nil {
		writeProfileError(ctx, w, err)
		return
	}

	payload := make([]paymentMethodPayload, 0, len(methods))
	for _, method := range methods {
		payload = append(payload, buildPaymentMethodPayload(method))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *MeHandlers) setDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || !identity.Valid() {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	paymentMethodID := strings.TrimSpace(chi.URLParam(r, "paymentMethodID"))
	if paymentMethodID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment method id is required", http.StatusBadRequest))
		return
	}

	method, err := h.users.SetDefaultPaymentMethod(ctx, identity.UID, paymentMethodID)
	if err != nil {
		writeProfileError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPaymentMethodPayload(method))
}

func (h *MeHandlers) removePaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || !identity.Valid() {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	paymentMethodID := strings.TrimSpace(chi.URLParam(r, "paymentMethodID"))
	if paymentMethodID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment method id is required", http.StatusBadRequest))
		return
	}

	if err := h.users.RemovePaymentMethod(ctx, identity.UID, paymentMethodID); err != nil {
		writeProfileError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paymentMethodPayload struct {
	ID             string `json:"id"`
	Brand          string `json:"brand,omitempty"`
	Last4          string `json:"last4,omitempty"`
	ExpMonth       int    `json:"exp_month,omitempty"`
	ExpYear        int    `json:"exp_year,omitempty"`
	CardholderName string `json:"cardholder_name,omitempty"`
	IsDefault      bool   `json:"is_default"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

func buildPaymentMethodPayload(method domain.PaymentMethod) paymentMethodPayload {
	return paymentMethodPayload{
		ID:             method.ID,
		Brand:          method.CardBrand,
		Last4:          method.CardLastFour,
		ExpMonth:       method.CardExpMonth,
		ExpYear:        method.CardExpYear,
		CardholderName: method.CardholderName,
		IsDefault:      method.IsDefault,
		CreatedAt:      formatTime(method.CreatedAt),
		UpdatedAt:      formatTime(method.UpdatedAt),
	}
}
