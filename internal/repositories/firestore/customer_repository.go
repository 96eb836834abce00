package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/nutriform/api/internal/domain"
	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/repositories"
)

const customerCollection = "customers"

// CustomerRepository persists customer records in Firestore. Guest shipping
// records and login-capable accounts share the collection; the authenticated
// flag separates them.
type CustomerRepository struct {
	base     *pfirestore.BaseRepository[customerDocument]
	provider *pfirestore.Provider
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}
	return &CustomerRepository{
		base:     pfirestore.NewBaseRepository[customerDocument](provider, customerCollection),
		provider: provider,
	}, nil
}

// FindByID loads the customer record by ID.
func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	if strings.TrimSpace(customerID) == "" {
		return domain.Customer{}, errors.New("customer repository: customer id is required")
	}

	doc, err := r.base.Get(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByEmail loads a customer by normalised email address.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	normalised := normaliseEmail(email)
	if normalised == "" {
		return domain.Customer{}, errors.New("customer repository: email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", normalised).Limit(1)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	if len(docs) == 0 {
		return domain.Customer{}, pfirestore.WrapError("customers.find_by_email", status.Error(codes.NotFound, "customer not found"))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// Insert stores a new customer record, enforcing email uniqueness for
// login-capable accounts inside a transaction.
func (r *CustomerRepository) Insert(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if r == nil || r.provider == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	id := strings.TrimSpace(customer.ID)
	if id == "" {
		return domain.Customer{}, errors.New("customer repository: customer id is required")
	}
	normalised := normaliseEmail(customer.Email)
	if normalised == "" {
		return domain.Customer{}, errors.New("customer repository: email is required")
	}

	now := time.Now().UTC()
	doc := fromDomainCustomer(customer, now)

	coll, err := r.base.CollectionRef(ctx)
	if err != nil {
		return domain.Customer{}, err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if customer.Authenticated {
			query := coll.Where("email", "==", normalised).Where("authenticated", "==", true).Limit(1)
			snaps, err := tx.Documents(query).GetAll()
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}
			if len(snaps) > 0 {
				return status.Error(codes.AlreadyExists, "customer email already registered")
			}
		}
		return tx.Create(coll.Doc(id), doc)
	})
	if err != nil {
		return domain.Customer{}, pfirestore.WrapError("customers.insert", err)
	}
	return doc.toDomain(id), nil
}

// Update overwrites the customer record.
func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	id := strings.TrimSpace(customer.ID)
	if id == "" {
		return domain.Customer{}, errors.New("customer repository: customer id is required")
	}

	now := time.Now().UTC()
	doc := fromDomainCustomer(customer, now)
	if !customer.CreatedAt.IsZero() {
		doc.CreatedAt = customer.CreatedAt.UTC()
	}

	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.Customer{}, err
	}
	return doc.toDomain(id), nil
}

// IncrementOrderCount bumps the customer's lifetime order counter.
func (r *CustomerRepository) IncrementOrderCount(ctx context.Context, customerID string) error {
	if r == nil || r.base == nil {
		return errors.New("customer repository not initialised")
	}
	if strings.TrimSpace(customerID) == "" {
		return errors.New("customer repository: customer id is required")
	}

	_, err := r.base.Update(ctx, customerID, []firestore.Update{
		{Path: "orderCount", Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

type customerDocument struct {
	Email             string           `firestore:"email"`
	Name              string           `firestore:"name"`
	Phone             *string          `firestore:"phone,omitempty"`
	Address           *addressDocument `firestore:"address,omitempty"`
	PreferredLanguage string           `firestore:"preferredLanguage,omitempty"`
	Authenticated     bool             `firestore:"authenticated"`
	OrderCount        int              `firestore:"orderCount"`
	CreatedAt         time.Time        `firestore:"createdAt"`
	UpdatedAt         time.Time        `firestore:"updatedAt"`
}

func fromDomainCustomer(customer domain.Customer, now time.Time) customerDocument {
	doc := customerDocument{
		Email:             normaliseEmail(customer.Email),
		Name:              strings.TrimSpace(customer.Name),
		Phone:             trimmedPtr(customer.Phone),
		Address:           fromDomainAddressPtr(customer.Address),
		PreferredLanguage: strings.TrimSpace(customer.PreferredLanguage),
		Authenticated:     customer.Authenticated,
		OrderCount:        customer.OrderCount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if !customer.CreatedAt.IsZero() {
		doc.CreatedAt = customer.CreatedAt.UTC()
	}
	return doc
}

func (d customerDocument) toDomain(id string) domain.Customer {
	return domain.Customer{
		ID:                id,
		Email:             d.Email,
		Name:              d.Name,
		Phone:             d.Phone,
		Address:           d.Address.toDomainPtr(),
		PreferredLanguage: d.PreferredLanguage,
		Authenticated:     d.Authenticated,
		OrderCount:        d.OrderCount,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type addressDocument struct {
	Line1      string  `firestore:"line1"`
	Line2      *string `firestore:"line2,omitempty"`
	City       string  `firestore:"city"`
	State      *string `firestore:"state,omitempty"`
	PostalCode string  `firestore:"postalCode"`
	Country    string  `firestore:"country"`
}

func fromDomainAddress(address domain.Address) addressDocument {
	return addressDocument{
		Line1:      strings.TrimSpace(address.Line1),
		Line2:      trimmedPtr(address.Line2),
		City:       strings.TrimSpace(address.City),
		State:      trimmedPtr(address.State),
		PostalCode: strings.TrimSpace(address.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(address.Country)),
	}
}

func fromDomainAddressPtr(address *domain.Address) *addressDocument {
	if address == nil {
		return nil
	}
	doc := fromDomainAddress(*address)
	return &doc
}

func (d addressDocument) toDomain() domain.Address {
	return domain.Address{
		Line1:      d.Line1,
		Line2:      d.Line2,
		City:       d.City,
		State:      d.State,
		PostalCode: d.PostalCode,
		Country:    d.Country,
	}
}

func (d *addressDocument) toDomainPtr() *domain.Address {
	if d == nil {
		return nil
	}
	address := d.toDomain()
	return &address
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

var _ repositories.CustomerRepository = (*CustomerRepository)(nil)
