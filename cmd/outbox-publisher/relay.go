package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/config"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
	"github.com/ecomarket/marketplace-backend/pkg/metrics"
	"github.com/ecomarket/marketplace-backend/pkg/outbox/payloads"
	"github.com/ecomarket/marketplace-backend/pkg/outbox/registry"
)

const (
	publishTimeout  = 15 * time.Second
	maxErrorBackoff = 10 * time.Second
)

type txRunner interface {
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRows interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventDecoder interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// orderSink delivers order events keyed by order id.
type orderSink interface {
	Send(ctx context.Context, msg *gcppubsub.Message) (string, error)
	// Resume unpauses an ordering key after a failed send.
	Resume(orderingKey string)
}

type RelayParams struct {
	Outbox  config.OutboxConfig
	Logger  *logger.Logger
	DB      txRunner
	Rows    outboxRows
	Decoder eventDecoder
	Sink    orderSink
	Metrics *metrics.OutboxMetrics
}

// Relay moves committed order events from outbox_events to the orders topic.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	rows        outboxRows
	decoder     eventDecoder
	sink        orderSink
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case p.Decoder == nil:
		return nil, errors.New("event decoder is required")
	case p.Sink == nil:
		return nil, errors.New("orders publisher is required")
	}

	batch := p.Outbox.BatchSize
	if batch <= 0 {
		batch = 50
	}
	attempts := p.Outbox.MaxAttempts
	if attempts <= 0 {
		attempts = 10
	}
	return &Relay{
		logg:        p.Logger,
		db:          p.DB,
		rows:        p.Rows,
		decoder:     p.Decoder,
		sink:        p.Sink,
		metrics:     p.Metrics,
		batchSize:   batch,
		maxAttempts: attempts,
		poll:        p.Outbox.PollInterval(),
	}, nil
}

// Run relays batches until ctx is done. A full batch is followed immediately
// by the next one; batch errors back off exponentially up to maxErrorBackoff.
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetched, err := r.relayBatch(ctx)
		wait := r.poll
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			backoff = min(backoff*2, maxErrorBackoff)
			wait = backoff
		case fetched == r.batchSize:
			backoff = r.poll
			wait = 0
		default:
			backoff = r.poll
		}

		if err := pause(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Relay) relayBatch(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveBatch(time.Since(started)) }()

	fetched := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.rows.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		fetched = len(rows)

		// orders whose earlier event failed in this batch; their later
		// events wait for the next batch
		held := map[uuid.UUID]bool{}
		for _, row := range rows {
			if held[row.AggregateID] {
				continue
			}
			hold, err := r.relayRow(ctx, tx, row)
			if err != nil {
				return err
			}
			if hold {
				held[row.AggregateID] = true
			}
		}
		return nil
	})
	return fetched, err
}

// relayRow publishes one row and records the outcome on tx. It reports
// whether later events of the same order must wait.
func (r *Relay) relayRow(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (bool, error) {
	rowCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"order_id":      row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := r.decoder.Resolve(row)
	if err != nil {
		return false, r.park(rowCtx, tx, row, err)
	}

	msg := orderMessage(row, resolved)
	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	messageID, err := r.sink.Send(sendCtx, msg)
	cancel()
	if err != nil {
		r.sink.Resume(msg.OrderingKey)
		r.metrics.IncFailed(string(row.EventType))
		if row.AttemptCount+1 >= r.maxAttempts {
			return true, r.park(rowCtx, tx, row, fmt.Errorf("giving up after %d attempts: %w", row.AttemptCount+1, err))
		}
		r.logg.Warn(r.logg.WithField(rowCtx, "error", err.Error()), "order event publish failed")
		if err := r.rows.MarkFailedTx(tx, row.ID, err); err != nil {
			return true, fmt.Errorf("mark outbox row %s failed: %w", row.ID, err)
		}
		return true, nil
	}

	if err := r.rows.MarkPublishedTx(tx, row.ID); err != nil {
		return false, fmt.Errorf("mark outbox row %s published: %w", row.ID, err)
	}
	r.metrics.IncPublished(string(row.EventType))
	r.logg.Info(r.logg.WithField(rowCtx, "message_id", messageID), "order event published")
	return false, nil
}

// park stops retrying a row. It stays in outbox_events with last_error set.
func (r *Relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, cause error) error {
	r.logg.Warn(r.logg.WithField(ctx, "error", cause.Error()), "order event parked")
	if err := r.rows.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("park outbox row %s: %w", row.ID, err)
	}
	return nil
}

// orderMessage keys every event by its order so subscribers see placed
// before status changes.
func orderMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	orderID := row.AggregateID.String()
	attrs := map[string]string{
		"event_id":    resolved.Envelope.EventID,
		"event_type":  string(row.EventType),
		"order_id":    orderID,
		"occurred_at": resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	switch p := resolved.Payload.(type) {
	case *payloads.OrderPlacedEvent:
		attrs["buyer_id"] = p.BuyerID
	case *payloads.OrderStatusChangedEvent:
		attrs["status"] = string(p.Status)
		attrs["payment_intent_id"] = p.PaymentIntentID
	}
	return &gcppubsub.Message{
		Data:        row.Payload,
		Attributes:  attrs,
		OrderingKey: orderID,
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type pubsubSink struct {
	publisher *gcppubsub.Publisher
}

func newPubsubSink(p *gcppubsub.Publisher) (*pubsubSink, error) {
	if p == nil {
		return nil, errors.New("orders topic publisher not available")
	}
	p.EnableMessageOrdering = true
	return &pubsubSink{publisher: p}, nil
}

func (s *pubsubSink) Send(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return s.publisher.Publish(ctx, msg).Get(ctx)
}

func (s *pubsubSink) Resume(orderingKey string) {
	s.publisher.ResumePublish(orderingKey)
}

// Stop flushes pending messages.
func (s *pubsubSink) Stop() {
	s.publisher.Stop()
}
