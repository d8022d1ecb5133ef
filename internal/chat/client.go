// Package chat consumes the assistant backend's event stream and keeps
// per-conversation transcripts.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/carehub/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout = 60 * time.Second
	readChunkSize  = 4096
)

var (
	// ErrRateLimited is returned when the backend answers 429.
	ErrRateLimited = errors.New("chat: rate limited")
	// ErrCreditsExhausted is returned when the backend answers 402.
	ErrCreditsExhausted = errors.New("chat: credits exhausted")
	// ErrUpstream covers every other non-2xx answer.
	ErrUpstream = errors.New("chat: upstream error")
	// ErrInterrupted means the connection failed mid-stream.
	ErrInterrupted   = errors.New("chat: stream interrupted")
	ErrNotConfigured = errors.New("chat: backend not configured")
)

// Role values for transcript messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// wireMessage is the shape the backend accepts.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Streamer produces an assistant reply one delta at a time.
type Streamer interface {
	Stream(ctx context.Context, messages []Message, onDelta func(string) error) (string, error)
}

// Client talks to the assistant backend.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithModel sets the model name sent with each request.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient swaps the transport, mostly for tests. The client passed in
// is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds a whole streamed reply.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a backend client for endpoint.
func NewClient(endpoint string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		tracer:     otel.Tracer("carehub.internal.chat"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.httpClient.Timeout != c.timeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

type streamRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// Stream posts the conversation and hands each content delta to onDelta as
// it arrives. It returns the full reply. An error from onDelta aborts the
// stream and is returned as is.
func (c *Client) Stream(ctx context.Context, messages []Message, onDelta func(string) error) (string, error) {
	if c == nil || c.endpoint == "" {
		return "", ErrNotConfigured
	}
	ctx, span := c.tracer.Start(ctx, "chat.stream")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.messages", len(messages)))

	reply, err := c.stream(ctx, messages, onDelta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("chat.reply_length", len(reply)))
	return reply, err
}

func (c *Client) stream(ctx context.Context, messages []Message, onDelta func(string) error) (string, error) {
	payload := streamRequest{Model: c.model, Stream: true, Messages: make([]wireMessage, len(messages))}
	for i, m := range messages {
		payload.Messages[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", ErrCreditsExhausted
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("chat backend rejected request", "status", resp.StatusCode, "body", string(snippet))
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var (
		dec   Decoder
		reply strings.Builder
		buf   = make([]byte, readChunkSize)
	)
	emit := func(deltas []string) error {
		for _, d := range deltas {
			reply.WriteString(d)
			if onDelta != nil {
				if err := onDelta(d); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for !dec.Done() {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if err := emit(dec.Feed(buf[:n])); err != nil {
				return reply.String(), err
			}
		}
		if readErr == io.EOF {
			if err := emit(dec.Flush()); err != nil {
				return reply.String(), err
			}
			if !dec.Done() {
				return reply.String(), fmt.Errorf("%w: stream ended before %s", ErrInterrupted, doneMarker)
			}
			break
		}
		if readErr != nil {
			return reply.String(), fmt.Errorf("%w: %w", ErrInterrupted, readErr)
		}
	}
	if dropped := dec.Dropped(); dropped > 0 {
		c.logger.Warn("chat stream lines dropped", "count", dropped)
	}
	return reply.String(), nil
}
