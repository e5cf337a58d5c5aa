// Package email delivers notifications as mail through AWS SES v2.
package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/civicsignal/go-message-pipeline/pkg/dispatch"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

// SESClient defines the subset of the sesv2.Client methods we use.
// This allows mocking for unit tests.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config holds the sender identity used for all outbound notification mail.
type Config struct {
	FromName    string
	FromAddress string
}

type Dispatcher struct {
	client SESClient
	cfg    Config
	logger *slog.Logger
}

func NewDispatcher(client SESClient, cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "SESDispatcher"),
	}
}

// Dispatch sends one message as mail. SES rejections that name the request
// or destination as the problem are permanent; throttling and transport
// failures are returned transient so the pipeline retries.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	to messaging.EmailChannel,
	content messaging.MessageContent,
	sender messaging.SenderMetadata,
) error {
	if to.ToAddress == "" {
		return dispatch.Permanent(errors.New("email channel has no destination address"))
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", d.cfg.FromName, d.cfg.FromAddress)),
		Destination:      &types.Destination{ToAddresses: []string{to.ToAddress}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(content.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(content.Markdown), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(renderHTML(content, sender)), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("sender_service"), Value: aws.String(sender.ServiceID)},
			{Name: aws.String("address_source"), Value: aws.String(string(to.AddressSource))},
		},
	}

	result, err := d.client.SendEmail(ctx, input)
	if err != nil {
		var rejected *types.MessageRejected
		var badRequest *types.BadRequestException
		if errors.As(err, &rejected) || errors.As(err, &badRequest) {
			return dispatch.Permanent(fmt.Errorf("ses rejected message: %w", err))
		}
		return fmt.Errorf("ses send failed: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	d.logger.Info("Email dispatched", "ses_message_id", messageID, "address_source", string(to.AddressSource))
	return nil
}

// renderHTML wraps the message in the minimal layout the platform mails
// out: sender heading, escaped body, organization footer. Markdown is sent
// as-is in the text part; rich rendering happens in the inbox client.
func renderHTML(content messaging.MessageContent, sender messaging.SenderMetadata) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(content.Subject))
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(content.Markdown))
	fmt.Fprintf(&b, "<hr/><p>%s - %s</p>",
		html.EscapeString(sender.OrganizationName),
		html.EscapeString(sender.ServiceName),
	)
	b.WriteString("</body></html>")
	return b.String()
}
