// Package mail delivers one-time codes by email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"gopkg.in/gomail.v2"
)

var ErrInvalidRecipient = errors.New("invalid email recipient")

// Sender is the part of *gomail.Dialer the Deliverer uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds the SMTP connection and message settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Subject  string `yaml:"subject"`

	// CodeTTL is stated in the message body. Zero omits the sentence.
	CodeTTL time.Duration `yaml:"-"`
}

// Deliverer sends each code as a plain-text email with an HTML alternative.
type Deliverer struct {
	sender  Sender
	from    string
	subject string
	ttl     time.Duration
}

var _ goOTP.Deliverer = (*Deliverer)(nil)

// New returns a Deliverer that dials the configured SMTP server per message.
func New(cfg Config) *Deliverer {
	return NewWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg)
}

// NewWithSender returns a Deliverer that sends through sender. An empty
// Subject falls back to a default.
func NewWithSender(sender Sender, cfg Config) *Deliverer {
	subject := cfg.Subject
	if subject == "" {
		subject = "Your verification code"
	}
	return &Deliverer{
		sender:  sender,
		from:    cfg.From,
		subject: subject,
		ttl:     cfg.CodeTTL,
	}
}

// Deliver sends code to identity, which must be an email address. SMTP
// sessions are not cancellable; when ctx ends first Deliver returns
// ctx.Err() and the send finishes in the background.
func (d *Deliverer) Deliver(ctx context.Context, identity, code string) error {
	if _, err := netmail.ParseAddress(identity); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := d.message(identity, code)

	result := make(chan error, 1)
	go func() {
		result <- d.sender.DialAndSend(m)
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("failed to send verification email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Deliverer) message(to, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", d.subject)

	expiry := ""
	if d.ttl > 0 {
		expiry = fmt.Sprintf(" It expires in %s.", humanDuration(d.ttl))
	}

	m.SetBody("text/plain", fmt.Sprintf(
		"Your verification code is %s.%s\n\nIf you did not request this code, you can ignore this email.\n",
		code, expiry,
	))
	m.AddAlternative("text/html", fmt.Sprintf(`
		<h3>Verification code</h3>
		<p>Your verification code is <strong>%s</strong>.%s</p>
		<p>If you did not request this code, you can ignore this email.</p>
	`, code, expiry))

	return m
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Minute == 0 && d >= time.Minute:
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	default:
		return d.String()
	}
}
