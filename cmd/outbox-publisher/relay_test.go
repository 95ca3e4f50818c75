package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/config"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
	"github.com/ecomarket/marketplace-backend/pkg/metrics"
	"github.com/ecomarket/marketplace-backend/pkg/outbox"
	"github.com/ecomarket/marketplace-backend/pkg/outbox/payloads"
	"github.com/ecomarket/marketplace-backend/pkg/outbox/registry"
)

type fakeDB struct{}

func (fakeDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRows struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRows) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeRows) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRows) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRows) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

// fakeSink fails sends whose event_id is listed in failFor.
type fakeSink struct {
	failFor map[string]bool
	sent    []*gcppubsub.Message
	resumed []string
}

func (f *fakeSink) Send(_ context.Context, msg *gcppubsub.Message) (string, error) {
	if f.failFor[msg.Attributes["event_id"]] {
		return "", errors.New("publish failed")
	}
	f.sent = append(f.sent, msg)
	return "msg-" + msg.Attributes["event_id"], nil
}

func (f *fakeSink) Resume(orderingKey string) {
	f.resumed = append(f.resumed, orderingKey)
}

func newTestRelay(t *testing.T, rows *fakeRows, sink *fakeSink, m *metrics.OutboxMetrics) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:  config.OutboxConfig{BatchSize: 10, MaxAttempts: 3},
		Logger:  logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}),
		DB:      fakeDB{},
		Rows:    rows,
		Decoder: registry.NewEventRegistry(),
		Sink:    sink,
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return relay
}

func TestRelayPublishesKeyedByOrder(t *testing.T) {
	orderID := uuid.New()
	placed := orderPlacedRow(t, orderID, "evt-placed", 0)
	changed := statusChangedRow(t, orderID, "evt-cancelled", enums.OrderStatusCancelled)
	rows := &fakeRows{rows: []models.OutboxEvent{placed, changed}}
	sink := &fakeSink{}

	fetched, err := newTestRelay(t, rows, sink, nil).relayBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched != 2 || len(sink.sent) != 2 || len(rows.published) != 2 {
		t.Fatalf("expected both events published, fetched=%d sent=%d marked=%d", fetched, len(sink.sent), len(rows.published))
	}

	first, second := sink.sent[0], sink.sent[1]
	for _, msg := range sink.sent {
		if msg.OrderingKey != orderID.String() {
			t.Fatalf("expected ordering key %s, got %q", orderID, msg.OrderingKey)
		}
		if msg.Attributes["order_id"] != orderID.String() {
			t.Fatalf("missing order_id attribute: %v", msg.Attributes)
		}
	}
	if first.Attributes["event_type"] != string(enums.EventOrderPlaced) || first.Attributes["buyer_id"] != "buyer-1" {
		t.Fatalf("unexpected placed attributes: %v", first.Attributes)
	}
	if second.Attributes["status"] != string(enums.OrderStatusCancelled) || second.Attributes["payment_intent_id"] != "pi_1" {
		t.Fatalf("unexpected status attributes: %v", second.Attributes)
	}
	if string(first.Data) != string(placed.Payload) {
		t.Fatalf("message data should carry the stored envelope")
	}
}

func TestRelayHoldsLaterEventsOfFailedOrder(t *testing.T) {
	stuck := uuid.New()
	other := uuid.New()
	rows := &fakeRows{rows: []models.OutboxEvent{
		orderPlacedRow(t, stuck, "evt-stuck-placed", 0),
		statusChangedRow(t, stuck, "evt-stuck-cancelled", enums.OrderStatusCancelled),
		orderPlacedRow(t, other, "evt-other-placed", 0),
	}}
	sink := &fakeSink{failFor: map[string]bool{"evt-stuck-placed": true}}

	if _, err := newTestRelay(t, rows, sink, nil).relayBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows.failed) != 1 || rows.failed[0] != rows.rows[0].ID {
		t.Fatalf("expected the failed placement recorded, got %v", rows.failed)
	}
	if len(sink.sent) != 1 || sink.sent[0].OrderingKey != other.String() {
		t.Fatalf("expected only the other order published, got %d messages", len(sink.sent))
	}
	if len(rows.published) != 1 || rows.published[0] != rows.rows[2].ID {
		t.Fatalf("status change of the stuck order must wait, published %v", rows.published)
	}
	if len(sink.resumed) != 1 || sink.resumed[0] != stuck.String() {
		t.Fatalf("expected ordering key resumed, got %v", sink.resumed)
	}
}

func TestRelayParksUndecodableRow(t *testing.T) {
	orderID := uuid.New()
	bad := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventType("order.shipped"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       json.RawMessage(`{}`),
	}
	next := statusChangedRow(t, orderID, "evt-next", enums.OrderStatusCancelled)
	rows := &fakeRows{rows: []models.OutboxEvent{bad, next}}
	sink := &fakeSink{}

	if _, err := newTestRelay(t, rows, sink, nil).relayBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows.terminal) != 1 || rows.terminal[0] != bad.ID {
		t.Fatalf("expected undecodable row parked, got %v", rows.terminal)
	}
	if len(rows.published) != 1 || rows.published[0] != next.ID {
		t.Fatalf("a parked row must not hold its order, published %v", rows.published)
	}
	if len(sink.resumed) != 0 {
		t.Fatalf("nothing was sent for the parked row, resumed %v", sink.resumed)
	}
}

func TestRelayParksAtMaxAttempts(t *testing.T) {
	row := orderPlacedRow(t, uuid.New(), "evt-last-try", 2)
	rows := &fakeRows{rows: []models.OutboxEvent{row}}
	sink := &fakeSink{failFor: map[string]bool{"evt-last-try": true}}

	if _, err := newTestRelay(t, rows, sink, nil).relayBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows.terminal) != 1 || len(rows.failed) != 0 {
		t.Fatalf("expected row parked on final attempt, terminal=%v failed=%v", rows.terminal, rows.failed)
	}
}

func TestRelayRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rows := &fakeRows{rows: []models.OutboxEvent{
		orderPlacedRow(t, uuid.New(), "evt-ok", 0),
		orderPlacedRow(t, uuid.New(), "evt-down", 0),
	}}
	sink := &fakeSink{failFor: map[string]bool{"evt-down": true}}

	if _, err := newTestRelay(t, rows, sink, metrics.NewOutboxMetrics(reg)).relayBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				counts[family.GetName()] += c.GetValue()
			}
		}
	}
	if counts["outbox_published_total"] != 1 || counts["outbox_publish_failed_total"] != 1 {
		t.Fatalf("unexpected counters %v", counts)
	}
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	rows := &fakeRows{}
	relay := newTestRelay(t, rows, &fakeSink{}, nil)
	relay.poll = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := relay.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	if _, err := NewRelay(RelayParams{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}

	relay, err := NewRelay(RelayParams{
		Logger:  logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}),
		DB:      fakeDB{},
		Rows:    &fakeRows{},
		Decoder: registry.NewEventRegistry(),
		Sink:    &fakeSink{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relay.batchSize != 50 || relay.maxAttempts != 10 || relay.poll != 500*time.Millisecond {
		t.Fatalf("unexpected defaults batch=%d attempts=%d poll=%s", relay.batchSize, relay.maxAttempts, relay.poll)
	}
}

func TestNewPubsubSinkRequiresPublisher(t *testing.T) {
	if _, err := newPubsubSink(nil); err == nil {
		t.Fatalf("expected error for missing publisher")
	}
}

func orderPlacedRow(t *testing.T, orderID uuid.UUID, eventID string, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		AttemptCount:  attempts,
		Payload: envelope(t, eventID, payloads.OrderPlacedEvent{
			OrderID:          orderID,
			BuyerID:          "buyer-1",
			TotalAmount:      "42.00",
			TotalCarbonSaved: "3.50",
			ProductIDs:       []uuid.UUID{uuid.New()},
			SellerIDs:        []string{"seller-1"},
		}),
	}
}

func statusChangedRow(t *testing.T, orderID uuid.UUID, eventID string, status enums.OrderStatus) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelope(t, eventID, payloads.OrderStatusChangedEvent{
			OrderID:         orderID,
			PaymentIntentID: "pi_1",
			Status:          status,
		}),
	}
}

func envelope(t *testing.T, eventID string, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}
