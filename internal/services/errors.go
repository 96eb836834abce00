package services

import "errors"

var (
	// ErrCheckoutInvalidInput signals bad request data such as a missing
	// address or an empty cart.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCustomerAlreadyExists is returned when account creation targets an
	// email that already has a login-capable account.
	ErrCustomerAlreadyExists = errors.New("checkout: account already exists for email")
	// ErrCustomerResolveFailed wraps persistence failures while locating or
	// creating the customer record.
	ErrCustomerResolveFailed = errors.New("checkout: failed to create user account")
	// ErrOrderCreateFailed wraps persistence failures while writing the order
	// and its items.
	ErrOrderCreateFailed = errors.New("checkout: failed to create order")
	// ErrOrderNumberExhausted is returned when order number generation keeps
	// colliding with reserved numbers.
	ErrOrderNumberExhausted = errors.New("checkout: order number generation exhausted")
	// ErrPricingInvalidInput signals pricing inputs outside their domain.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrNotFound is returned for reads that target a missing record.
	ErrNotFound = errors.New("services: not found")
	// ErrPermissionDenied is returned when a caller reads another customer's data.
	ErrPermissionDenied = errors.New("services: permission denied")
)
