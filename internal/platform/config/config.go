package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultShippingFlatFee       = 499
	defaultFreeShippingThreshold = 5000
	defaultTaxPercent            = 8
	defaultBundleDiscountPercent = 20

	defaultOrderEventTopic = "checkout-events"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Stripe    StripeConfig
	PubSub    PubSubConfig
	Checkout  CheckoutConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings used for auth verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StripeConfig holds the API key used for payment-instrument metadata lookups.
// No charges are made with it; see the payments package.
type StripeConfig struct {
	APIKey    string
	AccountID string
}

// PubSubConfig names the topic receiving post-checkout events.
type PubSubConfig struct {
	ProjectID       string
	OrderEventTopic string
}

// CheckoutConfig carries the pricing constants and the seeded promo registry.
type CheckoutConfig struct {
	ShippingFlatFee       int64
	FreeShippingThreshold int64
	TaxPercent            int
	BundleDiscountPercent int
	// PromoCodes is parsed from PROMO_CODES entries of the form
	// CODE:percent:message separated by commas.
	PromoCodes map[string]PromoSeed
}

// PromoSeed is one statically configured promo registry entry.
type PromoSeed struct {
	DiscountPercent int
	Message         string
}

// ValidationError is returned when required configuration fields are missing.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects an explicit key/value map taking precedence over the
// system environment. Primarily for tests.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv disables reading from os.Environ.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// Load assembles the application configuration from defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := environmentValues(options)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Stripe: StripeConfig{
			APIKey:    stringWithDefault(lookup, "STRIPE_API_KEY", ""),
			AccountID: stringWithDefault(lookup, "STRIPE_ACCOUNT_ID", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:       stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
			OrderEventTopic: stringWithDefault(lookup, "ORDER_EVENT_TOPIC", defaultOrderEventTopic),
		},
		Checkout: CheckoutConfig{
			ShippingFlatFee:       int64WithDefault(lookup, "SHIPPING_FLAT_FEE_CENTS", defaultShippingFlatFee),
			FreeShippingThreshold: int64WithDefault(lookup, "FREE_SHIPPING_THRESHOLD_CENTS", defaultFreeShippingThreshold),
			TaxPercent:            intWithDefault(lookup, "TAX_PERCENT", defaultTaxPercent),
			BundleDiscountPercent: intWithDefault(lookup, "BUNDLE_DISCOUNT_PERCENT", defaultBundleDiscountPercent),
			PromoCodes:            promoSeeds(lookup, "PROMO_CODES"),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Checkout.TaxPercent < 0 || cfg.Checkout.TaxPercent > 100 {
		missing = append(missing, "Checkout.TaxPercent")
	}
	if cfg.Checkout.BundleDiscountPercent < 0 || cfg.Checkout.BundleDiscountPercent > 100 {
		missing = append(missing, "Checkout.BundleDiscountPercent")
	}
	if cfg.Checkout.ShippingFlatFee < 0 {
		missing = append(missing, "Checkout.ShippingFlatFee")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func environmentValues(options loaderOptions) (map[string]string, error) {
	values := make(map[string]string)

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	for k, v := range dotEnv {
		values[k] = v
	}

	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
				continue
			}
			values[strings.TrimSpace(parts[0])] = parts[1]
		}
	}

	for k, v := range options.envMap {
		values[k] = v
	}
	return values, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		if key != "" {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func promoSeeds(lookup func(string) (string, bool), key string) map[string]PromoSeed {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	seeds := make(map[string]PromoSeed)
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) < 2 {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(parts[0]))
		percent, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if code == "" || err != nil || percent <= 0 || percent > 100 {
			continue
		}
		seed := PromoSeed{DiscountPercent: percent}
		if len(parts) == 3 {
			seed.Message = strings.TrimSpace(parts[2])
		}
		seeds[code] = seed
	}
	if len(seeds) == 0 {
		return nil
	}
	return seeds
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
