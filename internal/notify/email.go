package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server       string `json:"server" envconfig:"SERVER"`
	Port         int    `json:"port" envconfig:"PORT"`
	EmailAddress string `json:"email_address" envconfig:"EMAIL_ADDRESS"`
	Password     string `json:"password" envconfig:"PASSWORD"`
}

// EmailSink sends messages over SMTP.
type EmailSink struct {
	config SmtpConfig
}

func NewEmailSink(config SmtpConfig) EmailSink {
	return EmailSink{config: config}
}

func (s EmailSink) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send email: no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Attendance Manager <%s>", s.config.EmailAddress)
	mail.To = []string{msg.To}
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Body)

	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
