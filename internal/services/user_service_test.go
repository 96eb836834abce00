package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/nutriform/api/internal/domain"
)

type fakeWalletRepo struct {
	methods map[string][]domain.PaymentMethod

	deactivated []string
	setDefErr   error
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{methods: map[string][]domain.PaymentMethod{}}
}

func (f *fakeWalletRepo) List(_ context.Context, customerID string) ([]domain.PaymentMethod, error) {
	return f.methods[customerID], nil
}

func (f *fakeWalletRepo) Insert(_ context.Context, customerID string, method domain.PaymentMethod) (domain.PaymentMethod, error) {
	method.CustomerID = customerID
	f.methods[customerID] = append(f.methods[customerID], method)
	return method, nil
}

func (f *fakeWalletRepo) SetDefault(_ context.Context, customerID string, paymentMethodID string) (domain.PaymentMethod, error) {
	if f.setDefErr != nil {
		return domain.PaymentMethod{}, f.setDefErr
	}
	stored := f.methods[customerID]
	for i := range stored {
		stored[i].IsDefault = stored[i].ID == paymentMethodID
	}
	for _, method := range stored {
		if method.ID == paymentMethodID {
			return method, nil
		}
	}
	return domain.PaymentMethod{}, &fakeRepoError{notFound: true}
}

func (f *fakeWalletRepo) Deactivate(_ context.Context, customerID string, paymentMethodID string) error {
	for _, method := range f.methods[customerID] {
		if method.ID == paymentMethodID {
			f.deactivated = append(f.deactivated, paymentMethodID)
			return nil
		}
	}
	return &fakeRepoError{notFound: true}
}

func newTestUserService(t *testing.T, customers *fakeCustomerRepo, wallet *fakeWalletRepo) UserService {
	t.Helper()
	svc, err := NewUserService(UserServiceDeps{
		Customers:      customers,
		PaymentMethods: wallet,
	})
	if err != nil {
		t.Fatalf("NewUserService error: %v", err)
	}
	return svc
}

func seedProfile(repo *fakeCustomerRepo) domain.Customer {
	customer := domain.Customer{
		ID:            "cust-1",
		Email:         "ada@example.com",
		Name:          "Ada Lovelace",
		Authenticated: true,
	}
	repo.byID[customer.ID] = customer
	return customer
}

func TestUserService_GetProfile(t *testing.T) {
	customers := newFakeCustomerRepo()
	want := seedProfile(customers)
	svc := newTestUserService(t, customers, newFakeWalletRepo())

	got, err := svc.GetProfile(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if got.ID != want.ID || got.Email != want.Email {
		t.Fatalf("unexpected profile %+v", got)
	}
}

func TestUserService_GetProfileMissing(t *testing.T) {
	svc := newTestUserService(t, newFakeCustomerRepo(), newFakeWalletRepo())

	_, err := svc.GetProfile(context.Background(), "cust-unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_UpdateProfileAppliesSetFields(t *testing.T) {
	customers := newFakeCustomerRepo()
	seedProfile(customers)
	svc := newTestUserService(t, customers, newFakeWalletRepo())

	name := "Ada King"
	phone := "+44 20 7946 0000"
	addr := domain.Address{Line1: "1 St James Sq", City: "London", PostalCode: "SW1Y 4", Country: "GB"}
	got, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		CustomerID: "cust-1",
		Name:       &name,
		Phone:      &phone,
		Address:    &addr,
	})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if got.Name != "Ada King" {
		t.Fatalf("expected updated name, got %q", got.Name)
	}
	if got.Phone == nil || *got.Phone != phone {
		t.Fatalf("expected updated phone, got %v", got.Phone)
	}
	if got.Address == nil || got.Address.City != "London" {
		t.Fatalf("expected updated address, got %v", got.Address)
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("email must be untouched, got %q", got.Email)
	}
}

func TestUserService_UpdateProfileCanonicalisesLanguage(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"EN-us", "en-US"},
		{"ja_jp", "ja-JP"},
		{"  ", ""},
	}
	for _, tc := range cases {
		customers := newFakeCustomerRepo()
		seedProfile(customers)
		svc := newTestUserService(t, customers, newFakeWalletRepo())

		lang := tc.input
		got, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
			CustomerID: "cust-1",
			Language:   &lang,
		})
		if err != nil {
			t.Fatalf("UpdateProfile(%q) error: %v", tc.input, err)
		}
		if got.PreferredLanguage != tc.want {
			t.Fatalf("UpdateProfile(%q): expected language %q got %q", tc.input, tc.want, got.PreferredLanguage)
		}
	}
}

func TestUserService_UpdateProfileRejectsBadLanguage(t *testing.T) {
	customers := newFakeCustomerRepo()
	seedProfile(customers)
	svc := newTestUserService(t, customers, newFakeWalletRepo())

	lang := "not a language tag"
	_, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		CustomerID: "cust-1",
		Language:   &lang,
	})
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if len(customers.updated) != 0 {
		t.Fatalf("profile must not be written on validation failure")
	}
}

func TestUserService_UpdateProfileRejectsEmptyName(t *testing.T) {
	customers := newFakeCustomerRepo()
	seedProfile(customers)
	svc := newTestUserService(t, customers, newFakeWalletRepo())

	name := "   "
	_, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		CustomerID: "cust-1",
		Name:       &name,
	})
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestUserService_UpdateProfileClearsPhone(t *testing.T) {
	customers := newFakeCustomerRepo()
	existing := seedProfile(customers)
	phone := "+1 555 0100"
	existing.Phone = &phone
	customers.byID[existing.ID] = existing
	svc := newTestUserService(t, customers, newFakeWalletRepo())

	empty := ""
	got, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		CustomerID: "cust-1",
		Phone:      &empty,
	})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if got.Phone != nil {
		t.Fatalf("expected phone cleared, got %v", *got.Phone)
	}
}

func TestUserService_ListPaymentMethods(t *testing.T) {
	wallet := newFakeWalletRepo()
	wallet.methods["cust-1"] = []domain.PaymentMethod{
		{ID: "pm-1", CardBrand: "visa", CardLastFour: "4242", IsDefault: true},
		{ID: "pm-2", CardBrand: "mastercard", CardLastFour: "4444"},
	}
	customers := newFakeCustomerRepo()
	seedProfile(customers)
	svc := newTestUserService(t, customers, wallet)

	methods, err := svc.ListPaymentMethods(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("ListPaymentMethods error: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods got %d", len(methods))
	}
}

func TestUserService_SetDefaultPaymentMethod(t *testing.T) {
	wallet := newFakeWalletRepo()
	wallet.methods["cust-1"] = []domain.PaymentMethod{
		{ID: "pm-1", IsDefault: true},
		{ID: "pm-2"},
	}
	customers := newFakeCustomerRepo()
	seedProfile(customers)
	svc := newTestUserService(t, customers, wallet)

	method, err := svc.SetDefaultPaymentMethod(context.Background(), "cust-1", "pm-2")
	if err != nil {
		t.Fatalf("SetDefaultPaymentMethod error: %v", err)
	}
	if !method.IsDefault || method.ID != "pm-2" {
		t.Fatalf("unexpected method %+v", method)
	}
	if wallet.methods["cust-1"][0].IsDefault {
		t.Fatalf("previous default must be cleared")
	}
}

func TestUserService_SetDefaultUnknownMethod(t *testing.T) {
	customers := newFakeCustomerRepo()
	seedProfile(customers)
	svc := newTestUserService(t, customers, newFakeWalletRepo())

	_, err := svc.SetDefaultPaymentMethod(context.Background(), "cust-1", "pm-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_RemovePaymentMethod(t *testing.T) {
	wallet := newFakeWalletRepo()
	wallet.methods["cust-1"] = []domain.PaymentMethod{{ID: "pm-1"}}
	customers := newFakeCustomerRepo()
	seedProfile(customers)
	svc := newTestUserService(t, customers, wallet)

	if err := svc.RemovePaymentMethod(context.Background(), "cust-1", "pm-1"); err != nil {
		t.Fatalf("RemovePaymentMethod error: %v", err)
	}
	if len(wallet.deactivated) != 1 || wallet.deactivated[0] != "pm-1" {
		t.Fatalf("expected pm-1 deactivated, got %v", wallet.deactivated)
	}
}
