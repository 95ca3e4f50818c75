package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/ecomarket/marketplace-backend/pkg/config"
)

func TestNewClientRequiresSecretKey(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{}, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Nil(t, client)
}

func TestNewClientRejectsMismatchedKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_live_abc", Env: "test"}, nil)
	require.Error(t, err)

	_, err = NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_test_abc", Env: "staging"}, nil)
	require.ErrorIs(t, err, errInvalidStripeEnv)
}

func TestNewClientDefaultsCurrency(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_test_abc", Env: "TEST"}, nil)
	require.NoError(t, err)
	require.Equal(t, "test", client.Environment())
	require.Equal(t, "usd", client.Currency())
	require.Empty(t, client.SigningSecret())
}

func TestCreatePaymentIntentBuildsParams(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	client := &Client{
		currency: "usd",
		newIntent: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			captured = params
			return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
		},
	}

	ctx := context.Background()
	intent, err := client.CreatePaymentIntent(ctx, IntentRequest{
		AmountCents: 4550,
		Metadata:    map[string]string{"user_id": "user-1"},
	})
	require.NoError(t, err)
	require.Equal(t, "pi_123", intent.ID)
	require.Equal(t, "pi_123_secret", intent.ClientSecret)
	require.Equal(t, "requires_payment_method", intent.Status)

	require.NotNil(t, captured)
	require.Equal(t, int64(4550), *captured.Amount)
	require.Equal(t, "usd", *captured.Currency)
	require.True(t, *captured.AutomaticPaymentMethods.Enabled)
	require.Equal(t, "user-1", captured.Metadata["user_id"])
	require.Equal(t, ctx, captured.Context)
}

func TestCreatePaymentIntentWrapsProcessorError(t *testing.T) {
	client := &Client{
		currency: "usd",
		newIntent: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return nil, errors.New("card_declined")
		},
	}
	_, err := client.CreatePaymentIntent(context.Background(), IntentRequest{AmountCents: 100})
	require.ErrorContains(t, err, "card_declined")
}

func TestCreatePaymentIntentNilClient(t *testing.T) {
	var client *Client
	_, err := client.CreatePaymentIntent(context.Background(), IntentRequest{AmountCents: 100})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestConstructEventVerifiesSignature(t *testing.T) {
	client := &Client{signingSecret: "whsec_test"}

	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        "payment_intent.succeeded",
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": map[string]any{"id": "pi_1", "object": "payment_intent"}},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := client.ConstructEvent(payload, signed.Header)
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)
	require.Equal(t, stripe.EventTypePaymentIntentSucceeded, event.Type)

	_, err = client.ConstructEvent(payload, "t=1,v1=deadbeef")
	require.Error(t, err)
}

func TestConstructEventWithoutSecret(t *testing.T) {
	client := &Client{}
	_, err := client.ConstructEvent([]byte(`{}`), "t=1,v1=abc")
	require.ErrorIs(t, err, ErrWebhookSecretMissing)
}
