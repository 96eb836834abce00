package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/nutriform/api/internal/repositories"
)

const orderNumberAttempts = 5

// OrderNumberGeneratorDeps bundles dependencies for order number generation.
type OrderNumberGeneratorDeps struct {
	// OrderNumbers reserves generated numbers so storage enforces the real
	// uniqueness guarantee behind the best-effort scheme.
	OrderNumbers repositories.OrderNumberRepository
	Clock        func() time.Time
	// Rand returns a value in [0, n). Defaults to math/rand.
	Rand func(n int) int
}

type orderNumberGenerator struct {
	repo  repositories.OrderNumberRepository
	clock func() time.Time
	rand  func(n int) int
}

// NewOrderNumberGenerator wires the ORD-number generator.
func NewOrderNumberGenerator(deps OrderNumberGeneratorDeps) (OrderNumberGenerator, error) {
	if deps.OrderNumbers == nil {
		return nil, errors.New("order number generator: order number repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	random := deps.Rand
	if random == nil {
		random = rand.Intn
	}
	return &orderNumberGenerator{
		repo:  deps.OrderNumbers,
		clock: func() time.Time { return clock().UTC() },
		rand:  random,
	}, nil
}

// Generate produces an order number of the form ORD-<6 digits><3 digits>: a
// truncated timestamp plus a zero-padded random suffix. The combination is
// best-effort unique; the reservation write is the actual guarantee, so a
// collision just retries with a fresh suffix.
func (g *orderNumberGenerator) Generate(ctx context.Context) (string, error) {
	if g == nil || g.repo == nil {
		return "", errors.New("order number generator not initialised")
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		now := g.clock()
		number := fmt.Sprintf("ORD-%06d%03d", now.Unix()%1_000_000, g.rand(1000))

		err := g.repo.Register(ctx, number, now)
		if err == nil {
			return number, nil
		}
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			lastErr = err
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("%w: %v", ErrOrderNumberExhausted, lastErr)
}
