// Package notify delivers operator notifications.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const charset = "UTF-8"

// Message is a plain-text notification with an optional HTML body.
// When HTML is empty the text is sent wrapped in <pre>.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Notifier sends a message to a fixed recipient.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SESAPI is the subset of the SES v2 client used by SESNotifier.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier sends email through Amazon SES.
type SESNotifier struct {
	client    SESAPI
	sender    string
	recipient string
}

func NewSESNotifier(client SESAPI, sender, recipient string) *SESNotifier {
	return &SESNotifier{client: client, sender: sender, recipient: recipient}
}

// Send emails msg to the configured recipient.
func (n *SESNotifier) Send(ctx context.Context, msg Message) error {
	body := msg.HTML
	if body == "" {
		body = "<pre>" + html.EscapeString(msg.Text) + "</pre>"
	}

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.sender),
		Destination:      &types.Destination{ToAddresses: []string{n.recipient}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charset)},
					Html: &types.Content{Data: aws.String(body), Charset: aws.String(charset)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send error: %w", err)
	}
	return nil
}

// NopNotifier discards messages. It is used when no sender or recipient
// is configured.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, Message) error { return nil }
