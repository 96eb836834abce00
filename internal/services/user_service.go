package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/nutriform/api/internal/repositories"
)

var errInvalidLanguageTag = fmt.Errorf("%w: invalid language tag", ErrCheckoutInvalidInput)

// UserServiceDeps bundles constructor inputs for the profile service.
type UserServiceDeps struct {
	Customers      repositories.CustomerRepository
	PaymentMethods repositories.PaymentMethodRepository
	Clock          func() time.Time
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	customers repositories.CustomerRepository
	methods   repositories.PaymentMethodRepository
	clock     func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewUserService wires profile and saved payment method reads and writes.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Customers == nil {
		return nil, errors.New("user service: customer repository is required")
	}
	if deps.PaymentMethods == nil {
		return nil, errors.New("user service: payment method repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &userService{
		customers: deps.Customers,
		methods:   deps.PaymentMethods,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, customerID string) (Customer, error) {
	if s == nil || s.customers == nil {
		return Customer{}, errors.New("user service not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrCheckoutInvalidInput)
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, mapProfileError(err, customerID)
	}
	return customer, nil
}

// UpdateProfile applies the set fields of cmd to the stored profile. Nil
// pointers leave the current value untouched.
func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (Customer, error) {
	if s == nil || s.customers == nil {
		return Customer{}, errors.New("user service not initialised")
	}
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrCheckoutInvalidInput)
	}

	existing, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, mapProfileError(err, customerID)
	}

	updated := existing
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Customer{}, fmt.Errorf("%w: name must not be empty", ErrCheckoutInvalidInput)
		}
		updated.Name = name
	}
	if cmd.Phone != nil {
		phone := strings.TrimSpace(*cmd.Phone)
		if phone == "" {
			updated.Phone = nil
		} else {
			updated.Phone = &phone
		}
	}
	if cmd.Language != nil {
		canonical, err := canonicaliseLanguageTag(*cmd.Language)
		if err != nil {
			return Customer{}, err
		}
		updated.PreferredLanguage = canonical
	}
	if cmd.Address != nil {
		if err := validateAddress("address", *cmd.Address); err != nil {
			return Customer{}, err
		}
		address := *cmd.Address
		updated.Address = &address
	}

	saved, err := s.customers.Update(ctx, updated)
	if err != nil {
		s.logger(ctx, "profile.update_failed", map[string]any{
			"customerId": customerID,
			"error":      err.Error(),
		})
		return Customer{}, mapProfileError(err, customerID)
	}
	return saved, nil
}

func (s *userService) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	if s == nil || s.methods == nil {
		return nil, errors.New("user service not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrCheckoutInvalidInput)
	}
	return s.methods.List(ctx, customerID)
}

func (s *userService) SetDefaultPaymentMethod(ctx context.Context, customerID string, paymentMethodID string) (PaymentMethod, error) {
	if s == nil || s.methods == nil {
		return PaymentMethod{}, errors.New("user service not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if customerID == "" || paymentMethodID == "" {
		return PaymentMethod{}, fmt.Errorf("%w: customer id and payment method id are required", ErrCheckoutInvalidInput)
	}
	method, err := s.methods.SetDefault(ctx, customerID, paymentMethodID)
	if err != nil {
		return PaymentMethod{}, mapProfileError(err, paymentMethodID)
	}
	return method, nil
}

func (s *userService) RemovePaymentMethod(ctx context.Context, customerID string, paymentMethodID string) error {
	if s == nil || s.methods == nil {
		return errors.New("user service not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if customerID == "" || paymentMethodID == "" {
		return fmt.Errorf("%w: customer id and payment method id are required", ErrCheckoutInvalidInput)
	}
	if err := s.methods.Deactivate(ctx, customerID, paymentMethodID); err != nil {
		return mapProfileError(err, paymentMethodID)
	}
	return nil
}

func mapProfileError(err error, ref string) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return err
}

func canonicaliseLanguageTag(tag string) (string, error) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return "", nil
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", errors.Join(errInvalidLanguageTag, err)
	}
	return parsed.String(), nil
}
