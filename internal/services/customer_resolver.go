package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutriform/api/internal/platform/auth"
	"github.com/nutriform/api/internal/repositories"
)

// CustomerResolverDeps bundles dependencies required to construct a CustomerResolver.
type CustomerResolverDeps struct {
	Customers repositories.CustomerRepository
	// Accounts provisions login-capable accounts for guests opting in.
	Accounts auth.AccountProvisioner
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
	// NewID mints IDs for plain guest records. Defaults to random UUIDs.
	NewID func() string
}

type customerResolver struct {
	customers repositories.CustomerRepository
	accounts  auth.AccountProvisioner
	clock     func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
	newID     func() string
}

// NewCustomerResolver wires the checkout customer resolution flow.
func NewCustomerResolver(deps CustomerResolverDeps) (CustomerResolver, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer resolver: customer repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &customerResolver{
		customers: deps.Customers,
		accounts:  deps.Accounts,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
		newID:     newID,
	}, nil
}

// Resolve decides which customer record a checkout attaches to. Exactly one
// branch runs per attempt: an authenticated session reuses or materialises
// the profile, a guest opting into an account gets a fresh login-capable
// record after a duplicate-email check, and a plain guest always gets a new
// unauthenticated record.
func (r *customerResolver) Resolve(ctx context.Context, cmd ResolveCustomerCommand) (Customer, error) {
	if r == nil || r.customers == nil {
		return Customer{}, errors.New("customer resolver not initialised")
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" {
		return Customer{}, fmt.Errorf("%w: email is required", ErrCheckoutInvalidInput)
	}

	switch {
	case strings.TrimSpace(cmd.UID) != "":
		return r.resolveAuthenticated(ctx, cmd, email)
	case cmd.CreateAccount:
		return r.createAccount(ctx, cmd, email)
	default:
		return r.createGuest(ctx, cmd, email)
	}
}

func (r *customerResolver) resolveAuthenticated(ctx context.Context, cmd ResolveCustomerCommand, email string) (Customer, error) {
	uid := strings.TrimSpace(cmd.UID)

	customer, err := r.customers.FindByID(ctx, uid)
	if err != nil {
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			return Customer{}, fmt.Errorf("%w: load profile: %v", ErrCustomerResolveFailed, err)
		}

		// The login exists but the profile never materialised. Create it
		// from the session identity plus the billing form.
		created, err := r.customers.Insert(ctx, r.customerFromForm(uid, cmd, email, true))
		if err != nil {
			return Customer{}, fmt.Errorf("%w: materialise profile: %v", ErrCustomerResolveFailed, err)
		}
		customer = created
	}

	// Refresh the profile with the latest billing form data. Best-effort:
	// a failure is logged, never fatal, and checkout proceeds with the
	// record already in hand.
	refreshed := customer
	refreshed.Email = email
	refreshed.Name = strings.TrimSpace(cmd.Name)
	refreshed.Phone = optionalString(cmd.Phone)
	if address := cmd.Address; address != (Address{}) {
		refreshed.Address = &address
	}
	updated, err := r.customers.Update(ctx, refreshed)
	if err != nil {
		r.logger(ctx, "checkout.profile_refresh_failed", map[string]any{
			"customerId": customer.ID,
			"error":      err.Error(),
		})
		return customer, nil
	}
	return updated, nil
}

func (r *customerResolver) createAccount(ctx context.Context, cmd ResolveCustomerCommand, email string) (Customer, error) {
	if r.accounts == nil {
		return Customer{}, errors.New("customer resolver: account provisioner is required for account creation")
	}

	_, err := r.customers.FindByEmail(ctx, email)
	if err == nil {
		return Customer{}, ErrCustomerAlreadyExists
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		return Customer{}, fmt.Errorf("%w: check existing email: %v", ErrCustomerResolveFailed, err)
	}

	uid, err := r.accounts.CreateAccount(ctx, email, cmd.Password, strings.TrimSpace(cmd.Name))
	if err != nil {
		if errors.Is(err, auth.ErrAccountExists) {
			return Customer{}, ErrCustomerAlreadyExists
		}
		return Customer{}, fmt.Errorf("%w: provision account: %v", ErrCustomerResolveFailed, err)
	}

	created, err := r.customers.Insert(ctx, r.customerFromForm(uid, cmd, email, true))
	if err != nil {
		var insertErr repositories.RepositoryError
		if errors.As(err, &insertErr) && insertErr.IsConflict() {
			return Customer{}, ErrCustomerAlreadyExists
		}
		return Customer{}, fmt.Errorf("%w: create customer: %v", ErrCustomerResolveFailed, err)
	}
	return created, nil
}

func (r *customerResolver) createGuest(ctx context.Context, cmd ResolveCustomerCommand, email string) (Customer, error) {
	// Plain guests always get a fresh record. It is a shipping/billing
	// snapshot, not a login-capable account, so no duplicate-email check.
	created, err := r.customers.Insert(ctx, r.customerFromForm(r.newID(), cmd, email, false))
	if err != nil {
		return Customer{}, fmt.Errorf("%w: create guest record: %v", ErrCustomerResolveFailed, err)
	}
	return created, nil
}

func (r *customerResolver) customerFromForm(id string, cmd ResolveCustomerCommand, email string, authenticated bool) Customer {
	now := r.clock()
	customer := Customer{
		ID:            id,
		Email:         email,
		Name:          strings.TrimSpace(cmd.Name),
		Phone:         optionalString(cmd.Phone),
		Authenticated: authenticated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if address := cmd.Address; address != (Address{}) {
		customer.Address = &address
	}
	return customer
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
