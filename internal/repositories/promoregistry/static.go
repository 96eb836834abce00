// Package promoregistry provides an in-memory promo code registry seeded
// from configuration. It backs deployments that manage promo codes through
// environment configuration instead of Firestore documents.
package promoregistry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/platform/config"
	"github.com/nutriform/api/internal/repositories"
)

// StaticRegistry is a read-only promo code lookup backed by a map.
type StaticRegistry struct {
	codes map[string]domain.PromoCode
}

// NewStaticRegistry builds a registry from configuration seeds. Codes are
// stored uppercased.
func NewStaticRegistry(seeds map[string]config.PromoSeed) *StaticRegistry {
	codes := make(map[string]domain.PromoCode, len(seeds))
	for code, seed := range seeds {
		normalised := strings.ToUpper(strings.TrimSpace(code))
		if normalised == "" {
			continue
		}
		codes[normalised] = domain.PromoCode{
			Code:            normalised,
			DiscountPercent: seed.DiscountPercent,
			Message:         seed.Message,
			Active:          true,
		}
	}
	return &StaticRegistry{codes: codes}
}

// FindByCode returns the registry entry for the uppercased code.
func (r *StaticRegistry) FindByCode(_ context.Context, code string) (domain.PromoCode, error) {
	if r == nil {
		return domain.PromoCode{}, errors.New("promo registry not initialised")
	}
	normalised := strings.ToUpper(strings.TrimSpace(code))
	if entry, ok := r.codes[normalised]; ok {
		return entry, nil
	}
	return domain.PromoCode{}, &notFoundError{code: normalised}
}

type notFoundError struct {
	code string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("promo registry: code %q not found", e.code)
}

func (e *notFoundError) IsNotFound() bool    { return true }
func (e *notFoundError) IsConflict() bool    { return false }
func (e *notFoundError) IsUnavailable() bool { return false }

var (
	_ repositories.PromoCodeRepository = (*StaticRegistry)(nil)
	_ repositories.RepositoryError     = (*notFoundError)(nil)
)
