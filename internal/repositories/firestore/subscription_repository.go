package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/nutriform/api/internal/domain"
	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/repositories"
)

const subscriptionCollection = "subscriptions"

// SubscriptionRepository persists recurring-delivery subscriptions in Firestore.
type SubscriptionRepository struct {
	base *pfirestore.BaseRepository[subscriptionDocument]
}

// NewSubscriptionRepository constructs a Firestore-backed subscription repository.
func NewSubscriptionRepository(provider *pfirestore.Provider) (*SubscriptionRepository, error) {
	if provider == nil {
		return nil, errors.New("subscription repository requires firestore provider")
	}
	return &SubscriptionRepository{
		base: pfirestore.NewBaseRepository[subscriptionDocument](provider, subscriptionCollection),
	}, nil
}

// Insert stores a new subscription.
func (r *SubscriptionRepository) Insert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	if r == nil || r.base == nil {
		return domain.Subscription{}, errors.New("subscription repository not initialised")
	}
	id := strings.TrimSpace(sub.ID)
	if id == "" {
		return domain.Subscription{}, errors.New("subscription repository: subscription id is required")
	}
	if strings.TrimSpace(sub.CustomerID) == "" {
		return domain.Subscription{}, errors.New("subscription repository: customer id is required")
	}

	now := time.Now().UTC()
	doc := fromDomainSubscription(sub, now)
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.Subscription{}, err
	}
	return doc.toDomain(id), nil
}

// ListByCustomer returns the customer's subscriptions newest first.
func (r *SubscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Subscription, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("subscription repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, errors.New("subscription repository: customer id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("customerId", "==", customerID).
			OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(docs))
	for _, doc := range docs {
		subs = append(subs, doc.Data.toDomain(doc.ID))
	}
	return subs, nil
}

type subscriptionDocument struct {
	CustomerID      string                        `firestore:"customerId"`
	PlanName        string                        `firestore:"planName"`
	BillingCycle    string                        `firestore:"billingCycle"`
	MonthlyTotal    int64                         `firestore:"monthlyTotal"`
	Status          string                        `firestore:"status"`
	NextBillingDate time.Time                     `firestore:"nextBillingDate"`
	Products        []subscriptionProductDocument `firestore:"products"`
	CreatedAt       time.Time                     `firestore:"createdAt"`
}

type subscriptionProductDocument struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
	Price     int64  `firestore:"price"`
}

func fromDomainSubscription(sub domain.Subscription, now time.Time) subscriptionDocument {
	doc := subscriptionDocument{
		CustomerID:      strings.TrimSpace(sub.CustomerID),
		PlanName:        strings.TrimSpace(sub.PlanName),
		BillingCycle:    string(sub.BillingCycle),
		MonthlyTotal:    sub.MonthlyTotal,
		Status:          strings.TrimSpace(sub.Status),
		NextBillingDate: sub.NextBillingDate.UTC(),
		CreatedAt:       now,
	}
	if !sub.CreatedAt.IsZero() {
		doc.CreatedAt = sub.CreatedAt.UTC()
	}
	for _, product := range sub.Products {
		doc.Products = append(doc.Products, subscriptionProductDocument{
			ProductID: strings.TrimSpace(product.ProductID),
			Quantity:  product.Quantity,
			Price:     product.Price,
		})
	}
	return doc
}

func (d subscriptionDocument) toDomain(id string) domain.Subscription {
	sub := domain.Subscription{
		ID:              id,
		CustomerID:      d.CustomerID,
		PlanName:        d.PlanName,
		BillingCycle:    domain.BillingCycle(d.BillingCycle),
		MonthlyTotal:    d.MonthlyTotal,
		Status:          d.Status,
		NextBillingDate: d.NextBillingDate,
		CreatedAt:       d.CreatedAt,
	}
	for _, product := range d.Products {
		sub.Products = append(sub.Products, domain.SubscriptionProduct{
			ProductID: product.ProductID,
			Quantity:  product.Quantity,
			Price:     product.Price,
		})
	}
	return sub
}

var _ repositories.SubscriptionRepository = (*SubscriptionRepository)(nil)
