package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message carries the structured data a delivery needs. Rendering the
// human-readable subject and body is this package's responsibility; the
// workflow core only supplies the fields.
type Message struct {
	To            string
	RecipientName string
	Kind          string
	TicketNumber  int64
	TicketTitle   string
	Priority      int
	FromStatus    string
	ToStatus      string
	ActorName     string
	TicketURL     string
}

// Mailer is the outbound message collaborator.
type Mailer interface {
	Deliver(ctx context.Context, msg Message) error
}

type resendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer builds a Mailer backed by the Resend API.
func NewResendMailer(apiKey, from string) Mailer {
	return &resendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *resendMailer) Deliver(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: renderSubject(msg),
		Html:    renderBody(msg),
	}
	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}

func renderSubject(msg Message) string {
	return fmt.Sprintf("[Ticket #%d] %s", msg.TicketNumber, msg.TicketTitle)
}

func renderBody(msg Message) string {
	body := fmt.Sprintf("<p>Hello %s,</p>", msg.RecipientName)
	switch msg.Kind {
	case "ticket_created":
		body += fmt.Sprintf("<p>Ticket #%d (%s) was created by %s with priority %d.</p>",
			msg.TicketNumber, msg.TicketTitle, msg.ActorName, msg.Priority)
	case "ticket_assigned":
		body += fmt.Sprintf("<p>Ticket #%d (%s) was assigned by %s.</p>",
			msg.TicketNumber, msg.TicketTitle, msg.ActorName)
	case "ticket_closed":
		body += fmt.Sprintf("<p>Ticket #%d (%s) was closed by %s.</p>",
			msg.TicketNumber, msg.TicketTitle, msg.ActorName)
	case "escalation_requested":
		body += fmt.Sprintf("<p>%s requested escalation of ticket #%d (%s).</p>",
			msg.ActorName, msg.TicketNumber, msg.TicketTitle)
	case "escalation_approved":
		body += fmt.Sprintf("<p>Your escalation request for ticket #%d (%s) was approved by %s.</p>",
			msg.TicketNumber, msg.TicketTitle, msg.ActorName)
	case "ticket_escalated":
		body += fmt.Sprintf("<p>Ticket #%d (%s) was escalated to level 2 by %s.</p>",
			msg.TicketNumber, msg.TicketTitle, msg.ActorName)
	default:
		body += fmt.Sprintf("<p>Ticket #%d (%s) moved from %s to %s (by %s).</p>",
			msg.TicketNumber, msg.TicketTitle, msg.FromStatus, msg.ToStatus, msg.ActorName)
	}
	if msg.TicketURL != "" {
		body += fmt.Sprintf(`<p><a href="%s">View ticket</a></p>`, msg.TicketURL)
	}
	return body
}

type logMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a Mailer that only logs, for environments without
// an API key.
func NewLogMailer(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) Deliver(_ context.Context, msg Message) error {
	m.logger.Info("mail delivery (log only)",
		zap.String("to", msg.To),
		zap.String("kind", msg.Kind),
		zap.Int64("ticket_number", msg.TicketNumber))
	return nil
}
