package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries every environment-derived setting the process needs.
// It is built once at startup and never mutated afterwards; the test/live
// Stripe credential pair is resolved here so nothing downstream has to
// look at APP_ENV again.
type Config struct {
	Addr        string
	DatabaseURL string

	AppEnv string // "development" or "production"

	StripeSecretKey     string
	StripeWebhookSecret string
	// Webhook sender IP allowlist toggle; the list itself lives with the
	// webhook handler.
	StripeWebhookIPVerification bool

	JWTSecret string

	FrontendBaseURL string
	AllowedOrigins  string

	TurnstileSecretKey          string
	TurnstileSiteVerifyEndpoint string

	ResendAPIKey     string
	ResendAudienceID string

	UnsubscribeJWTSecret string

	CurrencyCode             string
	AllowedShippingCountries string

	MaxPendingOrdersPerIPPerDay int
	AutoApplyBestPromotion      bool
}

// Load reads the process environment. Required settings that are missing
// produce an error rather than a half-configured process.
func Load() (Config, error) {
	cfg := Config{
		Addr:                        getenv("ADDR", ":8080"),
		DatabaseURL:                 os.Getenv("DATABASE_URL"),
		AppEnv:                      getenv("APP_ENV", "development"),
		FrontendBaseURL:             getenv("FRONTEND_BASE_URL", "http://localhost:5173"),
		AllowedOrigins:              getenv("ALLOWED_ORIGINS", "http://localhost:5173"),
		JWTSecret:                   os.Getenv("JWT_SECRET"),
		TurnstileSecretKey:          os.Getenv("TURNSTILE_SECRET_KEY"),
		TurnstileSiteVerifyEndpoint: getenv("TURNSTILE_SITE_VERIFY_ENDPOINT", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		ResendAPIKey:                os.Getenv("RESEND_API_KEY"),
		ResendAudienceID:            os.Getenv("RESEND_AUDIENCE_ID"),
		UnsubscribeJWTSecret:        os.Getenv("UNSUBSCRIBE_JWT_SECRET"),
		CurrencyCode:                getenv("CURRENCY_CODE", "CAD"),
		AllowedShippingCountries:    getenv("ALLOWED_SHIPPING_COUNTRIES", "CA,US"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}

	switch cfg.AppEnv {
	case "production":
		cfg.StripeSecretKey = os.Getenv("STRIPE_LIVE_SECRET_KEY")
		cfg.StripeWebhookSecret = os.Getenv("STRIPE_LIVE_WEBHOOK_SECRET")
		if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
			return Config{}, fmt.Errorf("missing STRIPE_LIVE_SECRET_KEY or STRIPE_LIVE_WEBHOOK_SECRET")
		}
	default:
		cfg.StripeSecretKey = os.Getenv("STRIPE_TEST_SECRET_KEY")
		cfg.StripeWebhookSecret = os.Getenv("STRIPE_TEST_WEBHOOK_SECRET")
		if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
			return Config{}, fmt.Errorf("missing STRIPE_TEST_SECRET_KEY or STRIPE_TEST_WEBHOOK_SECRET")
		}
	}

	cfg.StripeWebhookIPVerification = getenvBool("STRIPE_WEBHOOK_IP_VERIFICATION", false)
	cfg.AutoApplyBestPromotion = getenvBool("AUTO_APPLY_BEST_PROMOTION", false)
	cfg.MaxPendingOrdersPerIPPerDay = getenvInt("MAX_PENDING_ORDERS_PER_IP_PER_DAY", 10)

	return cfg, nil
}

// AllowedOriginList splits the comma-separated ALLOWED_ORIGINS value.
func (c Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

// AllowedShippingCountryList splits ALLOWED_SHIPPING_COUNTRIES into
// ISO country codes.
func (c Config) AllowedShippingCountryList() []string {
	return splitList(c.AllowedShippingCountries)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
