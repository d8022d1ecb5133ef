package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"sort"
	"strings"
	"sync"

	"github.com/wolfman30/carehub/pkg/logging"
)

const defaultFromName = "CareHub"

var ErrInvalidRecipient = errors.New("notify: invalid recipient")

// EmailSender delivers booking confirmation emails.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single outgoing email. HTML is derived from Body when
// empty. Tags label the message for provider analytics.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
	Tags    map[string]string
}

func (m EmailMessage) recipient() (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(m.To))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, m.To)
	}
	return addr.Address, nil
}

func (m EmailMessage) htmlBody() string {
	if m.HTML != "" {
		return m.HTML
	}
	if m.Body == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(m.Body), "\n\n") {
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

// sortedTags returns tag pairs in key order so providers see a stable set.
func (m EmailMessage) sortedTags() [][2]string {
	keys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, m.Tags[k]})
	}
	return out
}

// sender is the identity every provider sends from.
type sender struct {
	email string
	name  string
}

func newSender(email, name string) sender {
	if strings.TrimSpace(name) == "" {
		name = defaultFromName
	}
	return sender{email: strings.TrimSpace(email), name: name}
}

// StubEmailSender logs instead of sending and keeps what it was asked to send.
type StubEmailSender struct {
	logger *logging.Logger

	mu   sync.Mutex
	sent []EmailMessage
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if _, err := msg.recipient(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.Info("email not sent (stub provider)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Sent returns a copy of every message passed to Send.
func (s *StubEmailSender) Sent() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailMessage(nil), s.sent...)
}
