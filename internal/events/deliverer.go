package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/carehub/pkg/logging"
)

// PendingStore is the part of the outbox the Deliverer needs.
type PendingStore interface {
	FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, cause string, retryAt time.Time) error
}

// DrainResult summarizes one pass over the outbox.
type DrainResult struct {
	Delivered int
	Retrying  int
	Dead      int
}

// Deliverer polls the outbox and hands each entry to the handler. Failed
// entries back off exponentially and are parked after maxAttempts.
type Deliverer struct {
	store       PendingStore
	handler     DeliveryHandler
	logger      *logging.Logger
	tracer      trace.Tracer
	now         func() time.Time
	batchSize   int32
	interval    time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func NewDeliverer(store PendingStore, handler DeliveryHandler, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:       store,
		handler:     handler,
		logger:      logger,
		tracer:      otel.Tracer("carehub.internal.events"),
		now:         time.Now,
		batchSize:   25,
		interval:    2 * time.Second,
		maxAttempts: 8,
		baseBackoff: 5 * time.Second,
		maxBackoff:  15 * time.Minute,
	}
}

func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Deliverer) WithMaxAttempts(n int) *Deliverer {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

// WithBackoff sets the first retry delay and the ceiling it doubles up to.
func (d *Deliverer) WithBackoff(base, ceiling time.Duration) *Deliverer {
	if base > 0 {
		d.baseBackoff = base
	}
	if ceiling >= d.baseBackoff {
		d.maxBackoff = ceiling
	}
	return d
}

// Start polls until ctx is cancelled.
func (d *Deliverer) Start(ctx context.Context) {
	if d.store == nil || d.handler == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain delivers one batch.
func (d *Deliverer) Drain(ctx context.Context) DrainResult {
	var res DrainResult
	entries, err := d.store.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return res
	}
	for _, entry := range entries {
		switch d.deliver(ctx, entry) {
		case outcomeDelivered:
			res.Delivered++
		case outcomeRetrying:
			res.Retrying++
		case outcomeDead:
			res.Dead++
		}
	}
	return res
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeDelivered
	outcomeRetrying
	outcomeDead
)

func (d *Deliverer) deliver(ctx context.Context, entry OutboxEntry) outcome {
	ctx, span := d.tracer.Start(ctx, "outbox.deliver", trace.WithAttributes(
		attribute.String("event.id", entry.ID.String()),
		attribute.String("event.type", entry.Type),
		attribute.Int("event.attempts", entry.Attempts),
	))
	defer span.End()

	if err := d.handler.Handle(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		attempt := entry.Attempts + 1
		var retryAt time.Time
		if attempt < d.maxAttempts {
			retryAt = d.now().Add(d.backoff(attempt))
		}
		if markErr := d.store.MarkFailed(ctx, entry.ID, err.Error(), retryAt); markErr != nil {
			d.logger.Error("failed to record outbox failure", "error", markErr, "event_id", entry.ID)
		}
		if retryAt.IsZero() {
			d.logger.Error("outbox entry parked after repeated failures",
				"error", err, "event_id", entry.ID, "type", entry.Type, "attempts", attempt)
			return outcomeDead
		}
		d.logger.Warn("outbox delivery failed", "error", err, "event_id", entry.ID, "type", entry.Type,
			"attempt", attempt, "retry_at", retryAt)
		return outcomeRetrying
	}

	ok, err := d.store.MarkDelivered(ctx, entry.ID)
	if err != nil {
		d.logger.Error("failed to mark outbox delivered", "error", err, "event_id", entry.ID)
		return outcomeSkipped
	}
	if !ok {
		return outcomeSkipped
	}
	d.logger.Debug("outbox delivered", "event_id", entry.ID, "type", entry.Type)
	return outcomeDelivered
}

// backoff doubles from baseBackoff per attempt and stops at maxBackoff.
func (d *Deliverer) backoff(attempt int) time.Duration {
	delay := d.baseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= d.maxBackoff {
			return d.maxBackoff
		}
	}
	return delay
}
