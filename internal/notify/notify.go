// Package notify sends the welcome message after registration.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Notifier delivers the welcome message to a newly registered address.
type Notifier interface {
	Welcome(ctx context.Context, email string) error
}

type Config struct {
	AppName    string
	SMTPServer string
	SMTPUser   string
	SMTPPass   string
	Sender     string
}

// New picks the SMTP notifier when a server is configured and the log
// notifier otherwise.
func New(cfg Config, logger *zap.SugaredLogger) Notifier {
	if cfg.SMTPServer == "" {
		return LogNotifier{logger: logger, appName: cfg.AppName}
	}
	return NewSMTPNotifier(cfg)
}

// LogNotifier only records that a welcome message would have been sent.
type LogNotifier struct {
	logger  *zap.SugaredLogger
	appName string
}

func NewLogNotifier(logger *zap.SugaredLogger, appName string) LogNotifier {
	return LogNotifier{logger: logger, appName: appName}
}

func (n LogNotifier) Welcome(_ context.Context, email string) error {
	if n.logger != nil {
		n.logger.Infow("welcome notification", "to", email, "app", n.appName)
	}
	return nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends a plain text message through an SMTP relay.
type SMTPNotifier struct {
	addr    string
	auth    smtp.Auth
	from    string
	appName string
	send    sendFunc
}

func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	addr := cfg.SMTPServer
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		addr = net.JoinHostPort(addr, "25")
	}
	n := &SMTPNotifier{addr: addr, from: cfg.Sender, appName: cfg.AppName, send: smtp.SendMail}
	if cfg.SMTPUser != "" {
		n.auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, host)
	}
	return n
}

func (n *SMTPNotifier) Welcome(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(email, "\r\n") {
		return fmt.Errorf("invalid recipient %q", email)
	}
	if err := n.send(n.addr, n.auth, n.from, []string{email}, n.message(email)); err != nil {
		return fmt.Errorf("send welcome to %s: %w", email, err)
	}
	return nil
}

func (n *SMTPNotifier) message(to string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Welcome to %s\r\n", n.appName)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString("You've created your account!\r\n")
	return []byte(b.String())
}
