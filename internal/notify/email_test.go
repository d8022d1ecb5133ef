package notify

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmation() EmailMessage {
	return EmailMessage{
		To:      "pat@example.com",
		ToName:  "Pat",
		Subject: "Booking LAB-20261019-AB12 confirmed",
		Body:    "Your booking is confirmed.\n\nBooking code: LAB-20261019-AB12\nService: CBC <fasting>",
		Tags:    map[string]string{"event": "booking_confirmed", "booking_type": "lab_test"},
	}
}

func TestEmailMessageHTMLBody(t *testing.T) {
	msg := confirmation()
	assert.Equal(t,
		"<p>Your booking is confirmed.</p><p>Booking code: LAB-20261019-AB12<br>Service: CBC &lt;fasting&gt;</p>",
		msg.htmlBody())

	msg.HTML = "<b>custom</b>"
	assert.Equal(t, "<b>custom</b>", msg.htmlBody())
	assert.Empty(t, EmailMessage{}.htmlBody())
}

func TestEmailMessageRecipient(t *testing.T) {
	addr, err := EmailMessage{To: " Pat <pat@example.com> "}.recipient()
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", addr)

	_, err = EmailMessage{To: "not-an-address"}.recipient()
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "bookings@carehub.test"}, nil))

	sender := NewSendGridSender(SendGridConfig{APIKey: "SG.key", FromEmail: "bookings@carehub.test"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "CareHub", sender.from.name)

	custom := NewSendGridSender(SendGridConfig{APIKey: "SG.key", FromName: "CareHub Labs"}, nil)
	assert.Equal(t, "CareHub Labs", custom.from.name)
}

type fakeSendGrid struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, m)
	return &rest.Response{StatusCode: f.status}, nil
}

func TestSendGridSenderSend(t *testing.T) {
	client := &fakeSendGrid{status: http.StatusAccepted}
	sender := newSendGridSender(client, SendGridConfig{FromEmail: "bookings@carehub.test"}, nil)

	require.NoError(t, sender.Send(context.Background(), confirmation()))
	require.Len(t, client.sent, 1)
	sent := client.sent[0]
	assert.Equal(t, "Booking LAB-20261019-AB12 confirmed", sent.Subject)
	assert.Equal(t, "CareHub", sent.From.Name)
	assert.Equal(t, []string{"booking_type:lab_test", "event:booking_confirmed"}, sent.Categories)
	require.Len(t, sent.Content, 2)
	assert.Equal(t, "text/html", sent.Content[1].Type)
}

func TestSendGridSenderErrors(t *testing.T) {
	cases := []struct {
		name   string
		sender *SendGridSender
		msg    EmailMessage
	}{
		{"no client", &SendGridSender{}, confirmation()},
		{"bad recipient", newSendGridSender(&fakeSendGrid{status: http.StatusAccepted}, SendGridConfig{}, nil), EmailMessage{To: "nope"}},
		{"rejected", newSendGridSender(&fakeSendGrid{status: http.StatusBadRequest}, SendGridConfig{}, nil), confirmation()},
		{"transport", newSendGridSender(&fakeSendGrid{err: errors.New("dial tcp: timeout")}, SendGridConfig{}, nil), confirmation()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.sender.Send(context.Background(), tc.msg))
		})
	}
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSenderSend(t *testing.T) {
	client := &fakeSES{}
	sender := newSESSender(client, SESConfig{FromEmail: "bookings@carehub.test"}, nil)

	require.NoError(t, sender.Send(context.Background(), confirmation()))
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, `"CareHub" <bookings@carehub.test>`, aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{`"Pat" <pat@example.com>`}, in.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(in.Content.Simple.Body.Text.Data), "LAB-20261019-AB12")
	require.NotNil(t, in.Content.Simple.Body.Html)
	require.Len(t, in.EmailTags, 2)
	assert.Equal(t, "booking_type", aws.ToString(in.EmailTags[0].Name))
	assert.Equal(t, "lab_test", aws.ToString(in.EmailTags[0].Value))
}

func TestSESSenderErrors(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))

	throttled := errors.New("throttled")
	err := newSESSender(&fakeSES{err: throttled}, SESConfig{}, nil).Send(context.Background(), confirmation())
	assert.ErrorIs(t, err, throttled)

	err = newSESSender(&fakeSES{}, SESConfig{}, nil).Send(context.Background(), EmailMessage{To: ""})
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestStubEmailSenderRecordsMessages(t *testing.T) {
	sender := NewStubEmailSender(nil)
	require.NoError(t, sender.Send(context.Background(), confirmation()))
	assert.ErrorIs(t, sender.Send(context.Background(), EmailMessage{To: "x"}), ErrInvalidRecipient)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "pat@example.com", sent[0].To)
}
