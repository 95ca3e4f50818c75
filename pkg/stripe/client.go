package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/ecomarket/marketplace-backend/pkg/config"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	// ErrNotConfigured is returned when no secret key is present. The API
	// still boots; payment endpoints answer 503.
	ErrNotConfigured = errors.New("stripe secret key not configured")
	// ErrWebhookSecretMissing is returned when a webhook arrives but no signing secret is set.
	ErrWebhookSecretMissing = errors.New("stripe webhook secret not configured")

	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// IntentRequest is the processor-facing shape of a payment intent.
type IntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

// Intent is the subset of the processor response returned to buyers.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

type intentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

// Client wraps Stripe's package-level API plus env-specific metadata.
type Client struct {
	environment   string
	signingSecret string
	currency      string
	newIntent     intentCreator
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.SecretKey)
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:   env,
		signingSecret: strings.TrimSpace(cfg.WebhookSecret),
		currency:      currency,
		newIntent:     paymentintent.New,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// Currency returns the lowercase ISO currency used for intents.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// CreatePaymentIntent creates an intent with automatic payment methods enabled.
func (c *Client) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if c == nil || c.newIntent == nil {
		return nil, ErrNotConfigured
	}
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	pi, err := c.newIntent(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	return webhook.ConstructEvent(payload, signature, c.signingSecret)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
