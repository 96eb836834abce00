package services

import (
	"context"
	"errors"
	"strings"

	"github.com/nutriform/api/internal/repositories"
)

const invalidPromoMessage = "Invalid promo code"

// PromoServiceDeps bundles dependencies required to construct a PromoService.
type PromoServiceDeps struct {
	PromoCodes repositories.PromoCodeRepository
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type promoService struct {
	repo   repositories.PromoCodeRepository
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewPromoService wires a PromoService backed by the injected promo registry.
func NewPromoService(deps PromoServiceDeps) (PromoService, error) {
	if deps.PromoCodes == nil {
		return nil, errors.New("promo service: promo code repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &promoService{repo: deps.PromoCodes, logger: logger}, nil
}

// Validate resolves a free-text code case-insensitively against the registry.
// A miss is not an error: the caller receives an invalid result with the
// standard message. Validation is stateless, so repeated calls with the same
// code yield identical results.
func (s *promoService) Validate(ctx context.Context, code string) (PromoValidation, error) {
	if s == nil || s.repo == nil {
		return PromoValidation{}, errors.New("promo service not initialised")
	}

	normalised := strings.ToUpper(strings.TrimSpace(code))
	if normalised == "" {
		return invalidPromo(), nil
	}

	entry, err := s.repo.FindByCode(ctx, normalised)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return invalidPromo(), nil
		}
		s.logger(ctx, "promo.lookup_failed", map[string]any{
			"code":  normalised,
			"error": err.Error(),
		})
		return PromoValidation{}, err
	}
	if !entry.Active {
		return invalidPromo(), nil
	}

	return PromoValidation{
		Valid:           true,
		Code:            entry.Code,
		DiscountPercent: entry.DiscountPercent,
		Message:         entry.Message,
	}, nil
}

func invalidPromo() PromoValidation {
	return PromoValidation{Valid: false, DiscountPercent: 0, Message: invalidPromoMessage}
}
