package alerting

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wneessen/go-mail"
	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
)

// Mailer sends HTML mail over SMTP with STARTTLS
type Mailer struct {
	cfg  config.EmailConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// Send delivers one message. textBody is attached as the plain alternative.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	if textBody != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, textBody)
	}
	return m.send(ctx, msg)
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// EmailChannel sends alerts to the user's email address
type EmailChannel struct {
	mailer  *Mailer
	subject string
}

func NewEmailChannel(mailer *Mailer, subject string) *EmailChannel {
	return &EmailChannel{mailer: mailer, subject: subject}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Recipient(user *auth_models.User) (string, bool) {
	addr := strings.TrimSpace(user.Email)
	return addr, addr != ""
}

func (c *EmailChannel) Send(ctx context.Context, to, message string) error {
	return c.mailer.Send(ctx, to, c.subject, AlertHTML(message), message)
}

// AlertHTML renders the alert text as the HTML mail body
func AlertHTML(message string) string {
	return `<div style="font-family: Arial, sans-serif; background-color: #f4f4f4; text-align: center; padding: 20px;">` +
		`<p style="color: #007BFF; font-size: 24px; font-weight: bold;">` + html.EscapeString(message) + `</p>` +
		`</div>`
}
