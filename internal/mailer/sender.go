package mailer

import (
	"context"
	stderrors "errors"
	"net"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/metrics"
)

// Sender delivers the thank-you email through a configured SMTP relay. The
// standard SSL port gets implicit TLS; everything else negotiates STARTTLS.
type Sender struct {
	cfg     config.SMTPConfig
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewSender creates a sender. metrics may be nil.
func NewSender(cfg config.SMTPConfig, logger *logging.Logger, m *metrics.Metrics) *Sender {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Sender{cfg: cfg, logger: logger, metrics: m}
}

// Enabled reports whether the relay configuration is complete enough to send.
func (s *Sender) Enabled() bool {
	return s.cfg.Enabled()
}

func (s *Sender) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

// SendThankYou sends the admission thank-you email to the submitter.
func (s *Sender) SendThankYou(ctx context.Context, toEmail, parentName, studentName string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return s.fail(ctx, "address", err)
	}
	if err := msg.AddToFormat(toEmail, parentName); err != nil {
		return s.fail(ctx, "address", err)
	}
	if s.cfg.ReplyTo != "" {
		if err := msg.ReplyTo(s.cfg.ReplyTo); err != nil {
			return s.fail(ctx, "address", err)
		}
	}
	msg.Subject(Subject)
	msg.SetBodyString(mail.TypeTextHTML, thankYouHTML(parentName, studentName))
	msg.AddAlternativeString(mail.TypeTextPlain, thankYouText(parentName, studentName))

	client, err := s.newClient()
	if err != nil {
		return s.fail(ctx, "connection", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return s.fail(ctx, classify(err), err)
	}

	if s.metrics != nil {
		s.metrics.RecordEmailSend("success")
	}
	s.logger.InfoWithContext(ctx, "thank you email sent", "to", toEmail)
	return nil
}

// VerifyConnection opens and immediately closes an SMTP session to validate
// the relay configuration without sending mail.
func (s *Sender) VerifyConnection(ctx context.Context) error {
	client, err := s.newClient()
	if err != nil {
		return s.fail(ctx, "connection", err)
	}
	if err := client.DialWithContext(ctx); err != nil {
		return s.fail(ctx, classify(err), err)
	}
	if err := client.Close(); err != nil {
		return s.fail(ctx, "connection", err)
	}
	return nil
}

func (s *Sender) fail(ctx context.Context, kind string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordEmailSend("failure")
	}
	s.logger.ErrorWithContext(ctx, "email send failed", "kind", kind, "error", err.Error())
	return &errors.ErrEmail{Kind: kind, Err: err}
}

// classify buckets SMTP failures so logs distinguish a bad password from an
// unreachable relay.
func classify(err error) string {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "535") || strings.Contains(msg, "auth") {
		return "auth"
	}
	return "connection"
}
