// Package email envío de correo por SMTP con go-mail.
package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/jhoicas/msp-api/internal/application/ports"
)

var _ ports.EmailSender = (*SMTPSender)(nil)

// ErrNotConfigured SMTP sin host configurado.
var ErrNotConfigured = errors.New("smtp host not configured")

// SMTPConfig parámetros de conexión.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // opcional: algunos relays no exigen auth
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPSender implementa ports.EmailSender.
type SMTPSender struct {
	cfg SMTPConfig
	log zerolog.Logger
}

// NewSMTPSender construye el sender.
func NewSMTPSender(cfg SMTPConfig, log zerolog.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{cfg: cfg, log: log.With().Str("component", "smtp").Logger()}
}

// Send envía un correo HTML a un destinatario.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := s.buildMessage(to, subject, htmlBody)
	if err != nil {
		return err
	}
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}
	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.log.Info().Str("to", to).Str("subject", subject).Msg("correo enviado")
	return nil
}

func (s *SMTPSender) buildMessage(to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
	} else if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

// clientOptions TLS según puerto: 465 implícito, 587 STARTTLS obligatorio, resto oportunista.
func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	switch s.cfg.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}
	return opts
}
