package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/nutriform/api/internal/domain"
	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/repositories"
)

const paymentMethodCollectionPattern = "customers/%s/paymentMethods"

// PaymentMethodRepository persists saved card references in a per-customer
// subcollection. Removal is a soft delete via the active flag.
type PaymentMethodRepository struct {
	provider *pfirestore.Provider
}

// NewPaymentMethodRepository constructs a Firestore-backed payment method repository.
func NewPaymentMethodRepository(provider *pfirestore.Provider) (*PaymentMethodRepository, error) {
	if provider == nil {
		return nil, errors.New("payment method repository requires firestore provider")
	}
	return &PaymentMethodRepository{provider: provider}, nil
}

// List returns the customer's active payment methods, newest first.
func (r *PaymentMethodRepository) List(ctx context.Context, customerID string) ([]domain.PaymentMethod, error) {
	coll, err := r.collection(ctx, customerID)
	if err != nil {
		return nil, err
	}

	iter := coll.Where("isActive", "==", true).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var methods []domain.PaymentMethod
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("payment_methods.list", err)
		}
		method, err := decodePaymentMethodDocument(snap, customerID)
		if err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	return methods, nil
}

// Insert stores a new payment method. The first saved method becomes the
// default; an explicit default clears any previous one in the same
// transaction.
func (r *PaymentMethodRepository) Insert(ctx context.Context, customerID string, method domain.PaymentMethod) (domain.PaymentMethod, error) {
	coll, err := r.collection(ctx, customerID)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	now := time.Now().UTC()
	var saved domain.PaymentMethod
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Firestore transactions reject reads issued after the first write,
		// so every query runs before the Set below.
		existing, err := tx.Documents(coll.Where("isActive", "==", true).Limit(1)).GetAll()
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		makeDefault := method.IsDefault || len(existing) == 0
		var defaults []*firestore.DocumentSnapshot
		if makeDefault {
			defaults, err = tx.Documents(coll.Where("isDefault", "==", true)).GetAll()
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}
		}

		docRef := coll.NewDoc()
		if id := strings.TrimSpace(method.ID); id != "" {
			docRef = coll.Doc(id)
		}

		doc := paymentMethodDocument{
			CardLastFour:   strings.TrimSpace(method.CardLastFour),
			CardBrand:      strings.TrimSpace(method.CardBrand),
			CardExpMonth:   method.CardExpMonth,
			CardExpYear:    method.CardExpYear,
			CardholderName: strings.TrimSpace(method.CardholderName),
			IsDefault:      makeDefault,
			BillingAddress: fromDomainAddressPtr(method.BillingAddress),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if !method.CreatedAt.IsZero() {
			doc.CreatedAt = method.CreatedAt.UTC()
		}

		if err := tx.Set(docRef, doc); err != nil {
			return err
		}
		if err := clearOtherDefaults(tx, defaults, docRef.ID, now); err != nil {
			return err
		}

		saved = doc.toDomain(docRef.ID, customerID)
		return nil
	})
	if err != nil {
		return domain.PaymentMethod{}, pfirestore.WrapError("payment_methods.insert", err)
	}
	return saved, nil
}

// SetDefault marks the specified payment method as default, clearing any previous default.
func (r *PaymentMethodRepository) SetDefault(ctx context.Context, customerID string, paymentMethodID string) (domain.PaymentMethod, error) {
	coll, err := r.collection(ctx, customerID)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	id := strings.TrimSpace(paymentMethodID)
	if id == "" {
		return domain.PaymentMethod{}, errors.New("payment method repository: id is required")
	}

	now := time.Now().UTC()
	var saved domain.PaymentMethod
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef := coll.Doc(id)
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		var doc paymentMethodDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode payment method %s: %w", id, err)
		}
		if !doc.IsActive {
			return status.Error(codes.FailedPrecondition, "payment method is removed")
		}

		// Query the current default holders before the first write; the
		// transaction forbids reads after it.
		defaults, err := tx.Documents(coll.Where("isDefault", "==", true)).GetAll()
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		if err := tx.Update(docRef, []firestore.Update{
			{Path: "isDefault", Value: true},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		if err := clearOtherDefaults(tx, defaults, docRef.ID, now); err != nil {
			return err
		}

		doc.IsDefault = true
		doc.UpdatedAt = now
		saved = doc.toDomain(docRef.ID, customerID)
		return nil
	})
	if err != nil {
		return domain.PaymentMethod{}, pfirestore.WrapError("payment_methods.set_default", err)
	}
	return saved, nil
}

// Deactivate soft-deletes the specified payment method.
func (r *PaymentMethodRepository) Deactivate(ctx context.Context, customerID string, paymentMethodID string) error {
	coll, err := r.collection(ctx, customerID)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(paymentMethodID)
	if id == "" {
		return errors.New("payment method repository: id is required")
	}

	now := time.Now().UTC()
	if _, err := coll.Doc(id).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: false},
		{Path: "isDefault", Value: false},
		{Path: "updatedAt", Value: now},
	}); err != nil {
		return pfirestore.WrapError("payment_methods.deactivate", err)
	}
	return nil
}

func (r *PaymentMethodRepository) collection(ctx context.Context, customerID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("payment method repository not initialised")
	}
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, errors.New("payment method repository: customer id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(paymentMethodCollectionPattern, id)), nil
}

// clearOtherDefaults demotes previously read default holders. Write-only so
// callers can sequence it after their own writes.
func clearOtherDefaults(tx *firestore.Transaction, snaps []*firestore.DocumentSnapshot, currentID string, now time.Time) error {
	for _, snap := range snaps {
		if snap.Ref.ID == currentID {
			continue
		}
		if err := tx.Update(snap.Ref, []firestore.Update{
			{Path: "isDefault", Value: false},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
	}
	return nil
}

func decodePaymentMethodDocument(snapshot *firestore.DocumentSnapshot, customerID string) (domain.PaymentMethod, error) {
	var doc paymentMethodDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("decode payment method %s: %w", snapshot.Ref.ID, err)
	}
	return doc.toDomain(snapshot.Ref.ID, customerID), nil
}

type paymentMethodDocument struct {
	CardLastFour   string           `firestore:"cardLastFour"`
	CardBrand      string           `firestore:"cardBrand"`
	CardExpMonth   int              `firestore:"cardExpMonth,omitempty"`
	CardExpYear    int              `firestore:"cardExpYear,omitempty"`
	CardholderName string           `firestore:"cardholderName,omitempty"`
	IsDefault      bool             `firestore:"isDefault"`
	BillingAddress *addressDocument `firestore:"billingAddress,omitempty"`
	IsActive       bool             `firestore:"isActive"`
	CreatedAt      time.Time        `firestore:"createdAt"`
	UpdatedAt      time.Time        `firestore:"updatedAt"`
}

func (d paymentMethodDocument) toDomain(id string, customerID string) domain.PaymentMethod {
	return domain.PaymentMethod{
		ID:             id,
		CustomerID:     strings.TrimSpace(customerID),
		CardLastFour:   strings.TrimSpace(d.CardLastFour),
		CardBrand:      strings.TrimSpace(d.CardBrand),
		CardExpMonth:   d.CardExpMonth,
		CardExpYear:    d.CardExpYear,
		CardholderName: strings.TrimSpace(d.CardholderName),
		IsDefault:      d.IsDefault,
		BillingAddress: d.BillingAddress.toDomainPtr(),
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

var _ repositories.PaymentMethodRepository = (*PaymentMethodRepository)(nil)
