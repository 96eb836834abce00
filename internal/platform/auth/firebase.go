package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/nutriform/api/internal/platform/config"
)

const defaultVerifyTimeout = 5 * time.Second

var (
	// ErrTokenExpired signals that the provided Firebase ID token has expired.
	ErrTokenExpired = errors.New("auth: firebase id token expired")
	// ErrTokenInvalid signals that the provided Firebase ID token is invalid.
	ErrTokenInvalid = errors.New("auth: firebase id token invalid")
	// ErrAccountExists signals that an account already exists for the email.
	ErrAccountExists = errors.New("auth: account already exists for email")
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// AccountProvisioner creates login-capable accounts in the auth provider.
// Used when a guest opts into account creation at checkout.
type AccountProvisioner interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
}

// FirebaseClient wraps the Firebase Admin SDK for token verification and
// account provisioning.
type FirebaseClient struct {
	client  *firebaseauth.Client
	timeout time.Duration
}

// FirebaseOption customises FirebaseClient instances.
type FirebaseOption func(*FirebaseClient)

// WithFirebaseTimeout overrides the timeout used for Admin SDK calls.
func WithFirebaseTimeout(d time.Duration) FirebaseOption {
	return func(c *FirebaseClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewFirebaseClient constructs a FirebaseClient backed by the Admin SDK.
func NewFirebaseClient(ctx context.Context, cfg config.FirebaseConfig, opts ...FirebaseOption) (*FirebaseClient, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}

	client := &FirebaseClient{client: authClient, timeout: defaultVerifyTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// VerifyIDToken forwards verification to the Firebase client with a bounded context.
func (c *FirebaseClient) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("firebase client not initialised")
	}

	ctx, cancel := c.boundedContext(ctx)
	if cancel != nil {
		defer cancel()
	}

	token, err := c.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return token, nil
}

// CreateAccount provisions a password-login account and returns its UID.
func (c *FirebaseClient) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("firebase client not initialised")
	}

	ctx, cancel := c.boundedContext(ctx)
	if cancel != nil {
		defer cancel()
	}

	params := (&firebaseauth.UserToCreate{}).
		Email(strings.ToLower(strings.TrimSpace(email))).
		Password(password)
	if name := strings.TrimSpace(displayName); name != "" {
		params = params.DisplayName(name)
	}

	record, err := c.client.CreateUser(ctx, params)
	if err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return "", ErrAccountExists
		}
		return "", fmt.Errorf("create firebase user: %w", err)
	}
	return record.UID, nil
}

func (c *FirebaseClient) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, c.timeout)
}
