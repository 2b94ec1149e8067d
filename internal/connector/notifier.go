// internal/connector/notifier.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

var ErrNotificationFailed = errors.New("NOTIFICATION_FAILED")

// EmailSender and SMSSender are the delivery capabilities the notifier
// needs; the aws package's clients satisfy them.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier alerts the support team when a run escalates. Either channel can
// be disabled; notification failure never changes the workflow outcome.
type Notifier struct {
	config config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		email:  email,
		sms:    sms,
		logger: log.With(map[string]interface{}{"component": "notifier"}),
	}
}

// NotifyEscalation fans the escalation out to every enabled channel and
// reports the first failure after trying them all.
func (n *Notifier) NotifyEscalation(ctx context.Context, msg models.InboundMessage, result models.WorkflowResult) error {
	var firstErr error

	if n.config.Email.Enabled && n.email != nil {
		if err := n.sendEmail(ctx, msg, result); err != nil {
			n.logger.WithError(err).Error("escalation email failed", map[string]interface{}{
				"runId": result.Trace.RunID,
			})
			firstErr = err
		}
	}

	if n.config.SMS.Enabled && n.sms != nil {
		if err := n.sendSMS(ctx, msg, result); err != nil {
			n.logger.WithError(err).Error("escalation SMS failed", map[string]interface{}{
				"runId": result.Trace.RunID,
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (n *Notifier) sendEmail(ctx context.Context, msg models.InboundMessage, result models.WorkflowResult) error {
	subject := fmt.Sprintf("Escalated triage run for %q", msg.Subject)
	body := buildEscalationBody(msg, result)

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.config.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.config.Email.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, msg models.InboundMessage, result models.WorkflowResult) error {
	text := fmt.Sprintf("Triage escalation: message %s from %s needs review (%d revisions exhausted).",
		msg.ID, msg.Sender, result.Trace.Revisions)

	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.config.SMS.ToPhone),
		Message:     aws.String(text),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

func buildEscalationBody(msg models.InboundMessage, result models.WorkflowResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A triage run could not produce an acceptable reply after %d revisions.\n\n", result.Trace.Revisions)
	fmt.Fprintf(&b, "Run:      %s\n", result.Trace.RunID)
	fmt.Fprintf(&b, "Message:  %s (from %s)\n", msg.ID, msg.Sender)
	fmt.Fprintf(&b, "Category: %s\n\n", result.Trace.Category)

	if len(result.OpenIssues) > 0 {
		b.WriteString("Outstanding review issues:\n")
		for _, issue := range result.OpenIssues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
		b.WriteString("\n")
	}

	if result.Draft != nil {
		b.WriteString("Best candidate draft:\n\n")
		b.WriteString(result.Draft.Body)
		b.WriteString("\n")
	}

	return b.String()
}
