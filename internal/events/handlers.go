package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/pkg/logging"
)

// Envelope is the transport shape of an outbox entry.
type Envelope struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventType       string          `json:"event_type"`
	Aggregate       string          `json:"aggregate"`
	TimestampMicros int64           `json:"timestamp"`
	Payload         json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an outbox entry for publishing.
func NewEnvelope(entry OutboxEntry) Envelope {
	return Envelope{
		EventID:         entry.ID,
		EventType:       entry.Type,
		Aggregate:       entry.Aggregate,
		TimestampMicros: entry.CreatedAt.UTC().UnixMicro(),
		Payload:         entry.Payload,
	}
}

// HandlerFunc adapts a function to DeliveryHandler.
type HandlerFunc func(ctx context.Context, entry OutboxEntry) error

func (f HandlerFunc) Handle(ctx context.Context, entry OutboxEntry) error { return f(ctx, entry) }

// Fanout delivers each entry to every handler. The entry counts as delivered
// only when all handlers succeed.
type Fanout []DeliveryHandler

func (f Fanout) Handle(ctx context.Context, entry OutboxEntry) error {
	var errs []error
	for _, h := range f {
		if h == nil {
			continue
		}
		if err := h.Handle(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher forwards booking events to the dispatch backend's queue.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	return newSQSPublisher(client, queueURL)
}

func newSQSPublisher(client sqsAPI, queueURL string) *SQSPublisher {
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	body, err := json.Marshal(NewEnvelope(entry))
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(entry.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	return nil
}

// Deduper tracks which entries a consumer already handled.
type Deduper interface {
	AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

const emailConsumer = "booking_email"

// EmailHandler sends the booking confirmation email for bookings that
// carry a contact address. Other event types are ignored.
type EmailHandler struct {
	sender notify.EmailSender
	dedupe Deduper
	logger *logging.Logger
}

// NewEmailHandler builds the handler. dedupe may be nil.
func NewEmailHandler(sender notify.EmailSender, dedupe Deduper, logger *logging.Logger) *EmailHandler {
	if sender == nil {
		panic("events: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailHandler{sender: sender, dedupe: dedupe, logger: logger}
}

func (h *EmailHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	if entry.Type != EventTypeBookingCreated {
		return nil
	}
	var evt BookingCreatedV1
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		// A payload that never decodes would block the outbox forever.
		h.logger.Error("dropping undecodable booking event", "event_id", entry.ID, "error", err)
		return nil
	}
	if strings.TrimSpace(evt.ContactEmail) == "" {
		return nil
	}

	eventID := entry.ID.String()
	if h.dedupe != nil {
		seen, err := h.dedupe.AlreadyProcessed(ctx, emailConsumer, eventID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	if err := h.sender.Send(ctx, confirmationEmail(evt)); err != nil {
		return fmt.Errorf("events: send confirmation email: %w", err)
	}

	if h.dedupe != nil {
		if _, err := h.dedupe.MarkProcessed(ctx, emailConsumer, eventID); err != nil {
			h.logger.Warn("failed to mark confirmation email processed", "event_id", eventID, "error", err)
		}
	}
	return nil
}

func confirmationEmail(evt BookingCreatedV1) notify.EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Your booking is confirmed.\n\n")
	fmt.Fprintf(&b, "Booking code: %s\n", evt.Code)
	fmt.Fprintf(&b, "Service: %s\n", evt.Title)
	if evt.ProviderName != "" {
		fmt.Fprintf(&b, "Provider: %s\n", evt.ProviderName)
	}
	if evt.BookingDate != "" {
		when := evt.BookingDate
		if evt.BookingTime != "" {
			when += " " + evt.BookingTime
		}
		fmt.Fprintf(&b, "When: %s\n", when)
	}
	if evt.Location != "" {
		fmt.Fprintf(&b, "Where: %s\n", evt.Location)
	}
	fmt.Fprintf(&b, "Total: ₹%d\n", evt.Amount)

	return notify.EmailMessage{
		To:      evt.ContactEmail,
		Subject: fmt.Sprintf("Booking %s confirmed", evt.Code),
		Body:    b.String(),
		Tags: map[string]string{
			"event":        "booking_confirmed",
			"booking_type": evt.BookingType,
		},
	}
}
