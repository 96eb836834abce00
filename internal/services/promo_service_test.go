package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	domain "github.com/nutriform/api/internal/domain"
)

type fakePromoRepo struct {
	codes map[string]domain.PromoCode
	err   error
	calls int
}

func (f *fakePromoRepo) FindByCode(_ context.Context, code string) (domain.PromoCode, error) {
	f.calls++
	if f.err != nil {
		return domain.PromoCode{}, f.err
	}
	if entry, ok := f.codes[strings.ToUpper(code)]; ok {
		return entry, nil
	}
	return domain.PromoCode{}, &fakeRepoError{notFound: true}
}

type fakeRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *fakeRepoError) Error() string       { return fmt.Sprintf("fake repo error %+v", *e) }
func (e *fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e *fakeRepoError) IsConflict() bool    { return e.conflict }
func (e *fakeRepoError) IsUnavailable() bool { return e.unavailable }

func newTestPromoService(t *testing.T, repo *fakePromoRepo) PromoService {
	t.Helper()
	svc, err := NewPromoService(PromoServiceDeps{PromoCodes: repo})
	if err != nil {
		t.Fatalf("NewPromoService error: %v", err)
	}
	return svc
}

func TestPromoService_CaseInsensitiveHit(t *testing.T) {
	repo := &fakePromoRepo{codes: map[string]domain.PromoCode{
		"WELCOME10": {Code: "WELCOME10", DiscountPercent: 10, Message: "10% off your first order", Active: true},
	}}
	svc := newTestPromoService(t, repo)

	for _, input := range []string{"WELCOME10", "welcome10", "  Welcome10  "} {
		result, err := svc.Validate(context.Background(), input)
		if err != nil {
			t.Fatalf("Validate(%q) error: %v", input, err)
		}
		if !result.Valid {
			t.Fatalf("Validate(%q): expected valid result", input)
		}
		if result.Code != "WELCOME10" || result.DiscountPercent != 10 {
			t.Fatalf("Validate(%q): unexpected result %+v", input, result)
		}
	}
}

func TestPromoService_MissReturnsInvalidResult(t *testing.T) {
	svc := newTestPromoService(t, &fakePromoRepo{})

	result, err := svc.Validate(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for unknown code")
	}
	if result.DiscountPercent != 0 {
		t.Fatalf("discount: want 0, got %d", result.DiscountPercent)
	}
	if result.Message != "Invalid promo code" {
		t.Fatalf("message: want %q, got %q", "Invalid promo code", result.Message)
	}
}

func TestPromoService_InactiveCodeIsInvalid(t *testing.T) {
	repo := &fakePromoRepo{codes: map[string]domain.PromoCode{
		"EXPIRED": {Code: "EXPIRED", DiscountPercent: 25, Active: false},
	}}
	svc := newTestPromoService(t, repo)

	result, err := svc.Validate(context.Background(), "expired")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected inactive code to be invalid")
	}
}

func TestPromoService_EmptyCodeSkipsLookup(t *testing.T) {
	repo := &fakePromoRepo{}
	svc := newTestPromoService(t, repo)

	result, err := svc.Validate(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for blank code")
	}
	if repo.calls != 0 {
		t.Fatalf("expected no repository lookup, got %d", repo.calls)
	}
}

func TestPromoService_Idempotent(t *testing.T) {
	repo := &fakePromoRepo{codes: map[string]domain.PromoCode{
		"BUNDLE5": {Code: "BUNDLE5", DiscountPercent: 5, Message: "5% off", Active: true},
	}}
	svc := newTestPromoService(t, repo)

	first, err := svc.Validate(context.Background(), "bundle5")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	second, err := svc.Validate(context.Background(), "bundle5")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if first != second {
		t.Fatalf("validation is not idempotent: %+v vs %+v", first, second)
	}
}

func TestPromoService_RepositoryFailureSurfaces(t *testing.T) {
	repoErr := errors.New("backend down")
	svc := newTestPromoService(t, &fakePromoRepo{err: repoErr})

	if _, err := svc.Validate(context.Background(), "WELCOME10"); !errors.Is(err, repoErr) {
		t.Fatalf("expected repository error to surface, got %v", err)
	}
}
