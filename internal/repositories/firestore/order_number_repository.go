package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/repositories"
)

const orderNumberCollection = "orderNumbers"

// OrderNumberRepository reserves generated order numbers. Each number becomes
// a document keyed by the number itself, so a duplicate registration fails
// with an already-exists conflict and the generator can retry.
type OrderNumberRepository struct {
	base *pfirestore.BaseRepository[orderNumberDocument]
}

// NewOrderNumberRepository constructs a Firestore-backed order number repository.
func NewOrderNumberRepository(provider *pfirestore.Provider) (*OrderNumberRepository, error) {
	if provider == nil {
		return nil, errors.New("order number repository requires firestore provider")
	}
	return &OrderNumberRepository{
		base: pfirestore.NewBaseRepository[orderNumberDocument](provider, orderNumberCollection),
	}, nil
}

// Register claims the order number. A conflict error means the number was
// already taken.
func (r *OrderNumberRepository) Register(ctx context.Context, orderNumber string, at time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("order number repository not initialised")
	}
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return errors.New("order number repository: order number is required")
	}

	ref, err := r.base.DocumentRef(ctx, number)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, orderNumberDocument{ReservedAt: at.UTC()}); err != nil {
		return pfirestore.WrapError("order_numbers.register", err)
	}
	return nil
}

type orderNumberDocument struct {
	ReservedAt time.Time `firestore:"reservedAt"`
}

var _ repositories.OrderNumberRepository = (*OrderNumberRepository)(nil)
