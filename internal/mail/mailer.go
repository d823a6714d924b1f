// Package mail defines the outbound notification boundary. Actual delivery
// is an external collaborator; the default implementation records messages
// in the server log so deployments without an SMTP relay still function.
package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/sitegate/sitegate/internal/observability"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers notifications.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes would-be deliveries to the server log.
type LogMailer struct{}

// NewLogMailer returns the logging mailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send records the message in the server log.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Outbound mail (log delivery)",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject))
	}
	return nil
}
