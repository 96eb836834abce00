package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nutriform/api/internal/services"
)

type stubPromoService struct {
	validateFn func(context.Context, string) (services.PromoValidation, error)
}

func (s *stubPromoService) Validate(ctx context.Context, code string) (services.PromoValidation, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, code)
	}
	return services.PromoValidation{}, errors.New("not implemented")
}

func newPromoRouter(service services.PromoService) chi.Router {
	handler := NewPromoHandlers(service)
	router := chi.NewRouter()
	router.Route("/promo-codes", handler.Routes)
	return router
}

func TestPromoHandlersValidateHit(t *testing.T) {
	service := &stubPromoService{
		validateFn: func(_ context.Context, code string) (services.PromoValidation, error) {
			if code != "welcome10" {
				return services.PromoValidation{}, errors.New("unexpected code")
			}
			return services.PromoValidation{
				Valid:           true,
				Code:            "WELCOME10",
				DiscountPercent: 10,
				Message:         "10% off your first order",
			}, nil
		},
	}

	router := newPromoRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/promo-codes/validate", bytes.NewReader([]byte(`{"code":"welcome10"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp promoValidateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Valid || resp.Code != "WELCOME10" || resp.DiscountPercent != 10 {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestPromoHandlersValidateMissIsStill200(t *testing.T) {
	service := &stubPromoService{
		validateFn: func(context.Context, string) (services.PromoValidation, error) {
			return services.PromoValidation{Valid: false, Message: "Invalid promo code"}, nil
		},
	}

	router := newPromoRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/promo-codes/validate", bytes.NewReader([]byte(`{"code":"BOGUS"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp promoValidateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Valid || resp.Message != "Invalid promo code" {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestPromoHandlersValidateLookupFailure(t *testing.T) {
	service := &stubPromoService{
		validateFn: func(context.Context, string) (services.PromoValidation, error) {
			return services.PromoValidation{}, errors.New("registry offline")
		},
	}

	router := newPromoRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/promo-codes/validate", bytes.NewReader([]byte(`{"code":"WELCOME10"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestPromoHandlersValidateMalformedBody(t *testing.T) {
	router := newPromoRouter(&stubPromoService{})
	req := httptest.NewRequest(http.MethodPost, "/promo-codes/validate", bytes.NewReader([]byte("{oops")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
