package auth

import (
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/nutriform/api/internal/platform/httpx"
)

// Authenticator wires Firebase token verification into HTTP middleware.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator constructs an Authenticator around the given verifier.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Authenticator) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, err := a.authenticate(r)
			if err != nil {
				code := "unauthenticated"
				message := "authentication required"
				if errors.Is(err, ErrTokenExpired) {
					code = "token_expired"
					message = "authentication token expired"
				}
				httpx.WriteError(ctx, w, httpx.NewError(code, message, http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// OptionalAuth attaches an identity when a valid bearer token is present and
// lets guests through untouched. An invalid token is still rejected so that
// a caller never silently degrades to guest.
func (a *Authenticator) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if bearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := a.authenticate(r)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "invalid authentication token", http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func (a *Authenticator) authenticate(r *http.Request) (*Identity, error) {
	if a == nil || a.verifier == nil {
		return nil, ErrTokenInvalid
	}
	token := bearerToken(r)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	decoded, err := a.verifier.VerifyIDToken(r.Context(), token)
	if err != nil {
		return nil, err
	}
	identity := identityFromToken(decoded)
	if !identity.Valid() {
		return nil, ErrTokenInvalid
	}
	return identity, nil
}

func identityFromToken(token *firebaseauth.Token) *Identity {
	if token == nil {
		return nil
	}
	identity := &Identity{UID: strings.TrimSpace(token.UID)}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = strings.ToLower(strings.TrimSpace(email))
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = strings.TrimSpace(name)
	}
	return identity
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
