package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/chat"
	appconfig "github.com/wolfman30/carehub/internal/config"
	"github.com/wolfman30/carehub/internal/events"
	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/pkg/logging"
)

// NotificationStore queues notifications and hands them back on poll.
type NotificationStore interface {
	notify.Notifier
	Drain(ctx context.Context, userID string) ([]notify.Notification, error)
}

// BuildNotificationStore prefers Redis and falls back to process memory.
func BuildNotificationStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) NotificationStore {
	if redisClient != nil {
		ttl := cfg.NotificationTTL
		return notify.NewRedisStore(redisClient, ttl)
	}
	if logger != nil {
		logger.Warn("redis unavailable; notifications kept in memory")
	}
	return notify.NewMemoryStore()
}

// BuildBookingService picks the Postgres repository with the outbox as event
// recorder, or the in-memory repository when no pool is available or
// cfg.UseInMemoryBookings is set.
func BuildBookingService(cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) *bookings.Service {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil || cfg.UseInMemoryBookings {
		logger.Warn("bookings stored in memory; data is lost on restart")
		return bookings.NewService(bookings.NewInMemoryRepository(), nil, logger)
	}
	return bookings.NewService(bookings.NewPostgresRepository(pool), events.NewOutboxStore(pool), logger)
}

// BuildChatService wires the streaming client to a transcript store.
func BuildChatService(cfg *appconfig.Config, redisClient *redis.Client, notifier notify.Notifier, observer chat.FailureObserver, logger *logging.Logger) *chat.Service {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.ChatBackendURL) == "" {
		logger.Warn("chat backend not configured; chat requests will fail")
	}
	client := chat.NewClient(cfg.ChatBackendURL, logger,
		chat.WithAPIKey(cfg.ChatAPIKey),
		chat.WithModel(cfg.ChatModel),
		chat.WithTimeout(cfg.ChatTimeout),
	)

	var store chat.TranscriptStore
	if redisClient != nil {
		store = chat.NewRedisStore(redisClient, cfg.ChatTranscriptLimit, cfg.ChatTranscriptTTL)
	} else {
		store = chat.NewMemoryStore(int(cfg.ChatTranscriptLimit))
	}

	opts := []chat.ServiceOption{}
	if notifier != nil {
		opts = append(opts, chat.WithNotifier(notifier))
	}
	if observer != nil {
		opts = append(opts, chat.WithFailureObserver(observer))
	}
	return chat.NewService(client, store, logger, opts...)
}

// BuildEmailSender selects the confirmation email provider. SES needs awsCfg;
// any provider that cannot be built falls back to the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected without api key; using stub email sender")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFromAddress,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("ses selected without aws config; using stub email sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildEventHandler fans outbox entries out to the booking events queue
// (when configured) and to the confirmation email handler.
func BuildEventHandler(cfg *appconfig.Config, sqsClient *sqs.Client, sender notify.EmailSender, dedupe events.Deduper, logger *logging.Logger) events.Fanout {
	var handlers events.Fanout
	if sqsClient != nil && strings.TrimSpace(cfg.BookingEventsQueue) != "" {
		handlers = append(handlers, events.NewSQSPublisher(sqsClient, cfg.BookingEventsQueue))
	}
	if sender != nil {
		handlers = append(handlers, events.NewEmailHandler(sender, dedupe, logger))
	}
	return handlers
}
