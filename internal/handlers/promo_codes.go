package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nutriform/api/internal/platform/httpx"
	"github.com/nutriform/api/internal/services"
)

const maxPromoBodySize = 4 * 1024

// PromoHandlers exposes the public promo code validation endpoint.
type PromoHandlers struct {
	promos services.PromoService
}

// NewPromoHandlers constructs the promo code endpoint handlers.
func NewPromoHandlers(promos services.PromoService) *PromoHandlers {
	return &PromoHandlers{promos: promos}
}

// Routes wires the /promo-codes endpoints onto the provided router.
func (h *PromoHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/validate", h.validate)
}

func (h *PromoHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promos == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promo_service_unavailable", "promo service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxPromoBodySize)
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

	var req promoValidateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	result, err := h.promos.Validate(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("promo_error", "promo code validation failed", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, promoValidateResponse{
		Valid:           result.Valid,
		Code:            result.Code,
		DiscountPercent: result.DiscountPercent,
		Message:         result.Message,
	})
}

type promoValidateRequest struct {
	Code string `json:"code"`
}

type promoValidateResponse struct {
	Valid           bool   `json:"valid"`
	Code            string `json:"code,omitempty"`
	DiscountPercent int    `json:"discount_percent"`
	Message         string `json:"message"`
}
