package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/nutriform/api/internal/domain"
	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/repositories"
)

const promoCodeCollection = "promoCodes"

// PromoCodeRepository reads promo registry entries from Firestore. Documents
// are keyed by the uppercased code.
type PromoCodeRepository struct {
	base *pfirestore.BaseRepository[promoCodeDocument]
}

// NewPromoCodeRepository constructs a Firestore-backed promo code repository.
func NewPromoCodeRepository(provider *pfirestore.Provider) (*PromoCodeRepository, error) {
	if provider == nil {
		return nil, errors.New("promo code repository requires firestore provider")
	}
	return &PromoCodeRepository{
		base: pfirestore.NewBaseRepository[promoCodeDocument](provider, promoCodeCollection),
	}, nil
}

// FindByCode loads the registry entry for the given code. Lookup is by the
// uppercased code; callers normalise first.
func (r *PromoCodeRepository) FindByCode(ctx context.Context, code string) (domain.PromoCode, error) {
	if r == nil || r.base == nil {
		return domain.PromoCode{}, errors.New("promo code repository not initialised")
	}
	normalised := strings.ToUpper(strings.TrimSpace(code))
	if normalised == "" {
		return domain.PromoCode{}, errors.New("promo code repository: code is required")
	}

	doc, err := r.base.Get(ctx, normalised)
	if err != nil {
		return domain.PromoCode{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

type promoCodeDocument struct {
	DiscountPercent int    `firestore:"discountPercent"`
	Message         string `firestore:"message,omitempty"`
	Active          bool   `firestore:"active"`
}

func (d promoCodeDocument) toDomain(code string) domain.PromoCode {
	return domain.PromoCode{
		Code:            code,
		DiscountPercent: d.DiscountPercent,
		Message:         d.Message,
		Active:          d.Active,
	}
}

var _ repositories.PromoCodeRepository = (*PromoCodeRepository)(nil)
