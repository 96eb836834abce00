package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/nutriform/api/internal/domain"
	"github.com/nutriform/api/internal/platform/auth"
	"github.com/nutriform/api/internal/platform/httpx"
	"github.com/nutriform/api/internal/services"
)

const maxProfileBodySize = 64 * 1024

var (
	errBodyTooLarge     = errors.New("request body too large")
	errEmptyBody        = errors.New("request body is required")
	errNoEditableFields = errors.New("no editable fields provided")
)

// MeHandlers exposes authenticated profile endpoints for the current customer.
type MeHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewMeHandlers constructs handlers enforcing authentication before invoking the user service.
func NewMeHandlers(authn *auth.Authenticator, users services.UserService) *MeHandlers {
	return &MeHandlers{authn: authn, users: users}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getProfile)
	r.Patch("/", h.updateProfile)
	r.Route("/payment-methods", h.paymentMethodRoutes)
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || !identity.Valid() {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	profile, err := h.users.GetProfile(ctx, identity.UID)
	if err != nil {
		writeProfileError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProfilePayload(profile))
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || !identity.Valid() {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxProfileBodySize)
	if err != nil {
		status := http.StatusBadRequest
		code := "invalid_request"
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
			code = "payload_too_large"
		}
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), status))
		return
	}

	cmd, err := parseUpdateProfileRequest(body, identity.UID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	profile, err := h.users.UpdateProfile(ctx, cmd)
	if err != nil {
		writeProfileError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProfilePayload(profile))
}

// parseUpdateProfileRequest distinguishes absent fields from present-but-empty
// ones, so a PATCH only touches the keys the client sent.
func parseUpdateProfileRequest(body []byte, customerID string) (services.UpdateProfileCommand, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return services.UpdateProfileCommand{}, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if len(raw) == 0 {
		return services.UpdateProfileCommand{}, errNoEditableFields
	}

	cmd := services.UpdateProfileCommand{CustomerID: customerID}
	editable := false

	if msg, ok := raw["name"]; ok {
		var name string
		if err := json.Unmarshal(msg, &name); err != nil {
			return services.UpdateProfileCommand{}, errors.New("name must be a string")
		}
		cmd.Name = &name
		editable = true
	}
	if msg, ok := raw["phone"]; ok {
		var phone string
		if err := json.Unmarshal(msg, &phone); err != nil {
			return services.UpdateProfileCommand{}, errors.New("phone must be a string")
		}
		cmd.Phone = &phone
		editable = true
	}
	if msg, ok := raw["preferred_language"]; ok {
		var lang string
		if err := json.Unmarshal(msg, &lang); err != nil {
			return services.UpdateProfileCommand{}, errors.New("preferred_language must be a string")
		}
		cmd.Language = &lang
		editable = true
	}
	if msg, ok := raw["address"]; ok {
		var payload addressPayload
		if err := json.Unmarshal(msg, &payload); err != nil {
			return services.UpdateProfileCommand{}, errors.New("address must be an object")
		}
		address := payload.toDomain()
		cmd.Address = &address
		editable = true
	}

	if !editable {
		return services.UpdateProfileCommand{}, errNoEditableFields
	}
	return cmd, nil
}

type profilePayload struct {
	ID                string          `json:"id"`
	Email             string          `json:"email"`
	Name              string          `json:"name"`
	Phone             string          `json:"phone,omitempty"`
	Address           *addressPayload `json:"address,omitempty"`
	PreferredLanguage string          `json:"preferred_language,omitempty"`
	OrderCount        int             `json:"order_count"`
	CreatedAt         string          `json:"created_at,omitempty"`
	UpdatedAt         string          `json:"updated_at,omitempty"`
}

func buildProfilePayload(customer domain.Customer) profilePayload {
	payload := profilePayload{
		ID:                customer.ID,
		Email:             customer.Email,
		Name:              customer.Name,
		PreferredLanguage: customer.PreferredLanguage,
		OrderCount:        customer.OrderCount,
		CreatedAt:         formatTime(customer.CreatedAt),
		UpdatedAt:         formatTime(customer.UpdatedAt),
	}
	if customer.Phone != nil {
		payload.Phone = *customer.Phone
	}
	if customer.Address != nil {
		address := buildAddressPayload(*customer.Address)
		payload.Address = &address
	}
	return payload
}

func writeProfileError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("profile_not_found", "profile not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("profile_error", err.Error(), http.StatusInternalServerError))
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxProfileBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
