package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/platform/auth"
)

type fakeCustomerRepo struct {
	byID    map[string]domain.Customer
	byEmail map[string]domain.Customer

	insertErr    error
	updateErr    error
	findByIDErr  error
	emailLookups int
	inserted     []domain.Customer
	updated      []domain.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{
		byID:    map[string]domain.Customer{},
		byEmail: map[string]domain.Customer{},
	}
}

func (f *fakeCustomerRepo) FindByID(_ context.Context, customerID string) (domain.Customer, error) {
	if f.findByIDErr != nil {
		return domain.Customer{}, f.findByIDErr
	}
	if customer, ok := f.byID[customerID]; ok {
		return customer, nil
	}
	return domain.Customer{}, &fakeRepoError{notFound: true}
}

func (f *fakeCustomerRepo) FindByEmail(_ context.Context, email string) (domain.Customer, error) {
	f.emailLookups++
	if customer, ok := f.byEmail[email]; ok {
		return customer, nil
	}
	return domain.Customer{}, &fakeRepoError{notFound: true}
}

func (f *fakeCustomerRepo) Insert(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	if f.insertErr != nil {
		return domain.Customer{}, f.insertErr
	}
	f.inserted = append(f.inserted, customer)
	f.byID[customer.ID] = customer
	f.byEmail[customer.Email] = customer
	return customer, nil
}

func (f *fakeCustomerRepo) Update(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	if f.updateErr != nil {
		return domain.Customer{}, f.updateErr
	}
	f.updated = append(f.updated, customer)
	f.byID[customer.ID] = customer
	return customer, nil
}

func (f *fakeCustomerRepo) IncrementOrderCount(_ context.Context, customerID string) error {
	customer, ok := f.byID[customerID]
	if !ok {
		return &fakeRepoError{notFound: true}
	}
	customer.OrderCount++
	f.byID[customerID] = customer
	return nil
}

type fakeProvisioner struct {
	uid string
	err error
}

func (f *fakeProvisioner) CreateAccount(context.Context, string, string, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.uid, nil
}

func newTestResolver(t *testing.T, repo *fakeCustomerRepo, provisioner auth.AccountProvisioner) CustomerResolver {
	t.Helper()
	resolver, err := NewCustomerResolver(CustomerResolverDeps{
		Customers: repo,
		Accounts:  provisioner,
		Clock:     func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
		NewID:     func() string { return "guest-1" },
	})
	if err != nil {
		t.Fatalf("NewCustomerResolver error: %v", err)
	}
	return resolver
}

func TestCustomerResolver_AuthenticatedExistingProfile(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.byID["uid-1"] = domain.Customer{ID: "uid-1", Email: "old@example.com", Name: "Old Name", Authenticated: true}
	resolver := newTestResolver(t, repo, &fakeProvisioner{})

	customer, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{
		UID:   "uid-1",
		Email: "New@Example.com",
		Name:  "New Name",
		Phone: "555-0100",
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	if customer.ID != "uid-1" {
		t.Fatalf("customer id: want uid-1, got %s", customer.ID)
	}
	if customer.Email != "new@example.com" || customer.Name != "New Name" {
		t.Fatalf("profile not refreshed from form: %+v", customer)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected no insert for an existing profile, got %d", len(repo.inserted))
	}
}

func TestCustomerResolver_AuthenticatedMaterialisesMissingProfile(t *testing.T) {
	repo := newFakeCustomerRepo()
	resolver := newTestResolver(t, repo, &fakeProvisioner{})

	customer, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{
		UID:     "uid-9",
		Email:   "shopper@example.com",
		Name:    "Shopper",
		Address: Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	if customer.ID != "uid-9" {
		t.Fatalf("customer keeps the session uid: want uid-9, got %s", customer.ID)
	}
	if !customer.Authenticated {
		t.Fatal("materialised profile must be authenticated")
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(repo.inserted))
	}
}

func TestCustomerResolver_AuthenticatedRefreshFailureIsNotFatal(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.byID["uid-1"] = domain.Customer{ID: "uid-1", Email: "old@example.com", Name: "Old Name", Authenticated: true}
	repo.updateErr = errors.New("backend down")
	logged := 0
	resolver, err := NewCustomerResolver(CustomerResolverDeps{
		Customers: repo,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			if event == "checkout.profile_refresh_failed" {
				logged++
			}
		},
	})
	if err != nil {
		t.Fatalf("NewCustomerResolver error: %v", err)
	}

	customer, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{
		UID:   "uid-1",
		Email: "new@example.com",
		Name:  "New Name",
	})
	if err != nil {
		t.Fatalf("refresh failure must not abort checkout: %v", err)
	}
	if customer.Name != "Old Name" {
		t.Fatalf("expected the pre-refresh record, got %+v", customer)
	}
	if logged != 1 {
		t.Fatalf("expected one refresh failure log, got %d", logged)
	}
}

func TestCustomerResolver_CreateAccountDuplicateEmailFails(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.byEmail["taken@example.com"] = domain.Customer{ID: "uid-0", Email: "taken@example.com", Authenticated: true}
	resolver := newTestResolver(t, repo, &fakeProvisioner{uid: "uid-new"})

	_, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{
		Email:         "Taken@Example.com",
		Name:          "Dup",
		CreateAccount: true,
		Password:      "hunter2hunter2",
	})
	if !errors.Is(err, ErrCustomerAlreadyExists) {
		t.Fatalf("expected ErrCustomerAlreadyExists, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("duplicate email must never create a customer")
	}
}

func TestCustomerResolver_CreateAccountProvisionerConflict(t *testing.T) {
	repo := newFakeCustomerRepo()
	resolver := newTestResolver(t, repo, &fakeProvisioner{err: auth.ErrAccountExists})

	_, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{
		Email:         "racy@example.com",
		CreateAccount: true,
		Password:      "hunter2hunter2",
	})
	if !errors.Is(err, ErrCustomerAlreadyExists) {
		t.Fatalf("expected ErrCustomerAlreadyExists, got %v", err)
	}
}

func TestCustomerResolver_CreateAccountSuccess(t *testing.T) {
	repo := newFakeCustomerRepo()
	resolver := newTestResolver(t, repo, &fakeProvisioner{uid: "uid-new"})

	customer, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{
		Email:         "fresh@example.com",
		Name:          "Fresh",
		CreateAccount: true,
		Password:      "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if customer.ID != "uid-new" {
		t.Fatalf("customer id must come from the provisioned account: got %s", customer.ID)
	}
	if !customer.Authenticated {
		t.Fatal("created account must be authenticated")
	}
}

func TestCustomerResolver_PlainGuestSkipsEmailCheck(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.byEmail["repeat@example.com"] = domain.Customer{ID: "uid-0", Email: "repeat@example.com"}
	resolver := newTestResolver(t, repo, &fakeProvisioner{})

	customer, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{
		Email: "repeat@example.com",
		Name:  "Guest",
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if customer.ID != "guest-1" {
		t.Fatalf("guest id: want guest-1, got %s", customer.ID)
	}
	if customer.Authenticated {
		t.Fatal("plain guest record must not be authenticated")
	}
	if repo.emailLookups != 0 {
		t.Fatalf("plain guest branch must not check existing emails, got %d lookups", repo.emailLookups)
	}
}

func TestCustomerResolver_ResolveFailureShortCircuits(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.insertErr = errors.New("backend down")
	resolver := newTestResolver(t, repo, &fakeProvisioner{})

	_, err := resolver.Resolve(context.Background(), ResolveCustomerCommand{Email: "guest@example.com"})
	if !errors.Is(err, ErrCustomerResolveFailed) {
		t.Fatalf("expected ErrCustomerResolveFailed, got %v", err)
	}
}
