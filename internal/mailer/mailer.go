package mailer

import (
	"context" // Cancellation before dialing
	"errors"  // Sentinel errors
	"io"      // Attachment writer

	"github.com/sirupsen/logrus" // Logging of unsent mail
	"gopkg.in/gomail.v2"         // SMTP client
)

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string // Name shown to the recipient
	ContentType string // MIME type
	Data        []byte // File content
}

// Message is one outgoing email
type Message struct {
	To         string      // Recipient address
	Subject    string      // Subject line
	Body       string      // Plain text body
	Attachment *Attachment // Optional attachment
}

// Mailer sends email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers mail through an SMTP server
type SMTPMailer struct {
	dialer *gomail.Dialer // SMTP connection settings
	sender string         // From address
}

// NewSMTPMailer builds a mailer; port 465 implies implicit TLS
func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		sender: sender,
	}
}

// Send delivers msg
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.sender)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	if a := msg.Attachment; a != nil {
		gm.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(a.Data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
	return m.dialer.DialAndSend(gm)
}

// ErrNoTransport is returned when production has no SMTP host configured
var ErrNoTransport = errors.New("mailer: MAIL_HOST must be set in production")

// New returns an SMTP mailer for host, or a LogMailer when host is empty.
// In production an empty host is an error.
func New(host string, port int, username, password, sender string, prod bool) (Mailer, error) {
	if host != "" {
		return NewSMTPMailer(host, port, username, password, sender), nil
	}
	if prod {
		return nil, ErrNoTransport
	}
	return LogMailer{}, nil
}

// LogMailer only logs message metadata. Used when no SMTP host is configured.
type LogMailer struct{}

// Send logs msg without its body, which may carry one-time codes, and reports success
func (LogMailer) Send(_ context.Context, msg Message) error {
	fields := logrus.Fields{
		"to":        msg.To,        // Recipient
		"subject":   msg.Subject,   // Subject line
		"body_size": len(msg.Body), // Body is never logged
	}
	if msg.Attachment != nil {
		fields["attachment"] = msg.Attachment.Filename
		fields["size"] = len(msg.Attachment.Data)
	}
	logrus.WithFields(fields).Info("Mail not sent, no SMTP host configured")
	return nil
}
