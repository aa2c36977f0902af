package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/engagement-hub/pkg/logger"
)

type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	// UseTLS selects STARTTLS; otherwise implicit SSL is used.
	UseTLS bool
	// RatePerSecond and Burst pace outgoing mail. Zero disables pacing.
	RatePerSecond float64
	Burst         int
}

// Enabled reports whether enough is configured to reach a server.
func (c Config) Enabled() bool {
	return c.Host != "" && c.FromEmail != ""
}

type smtpService struct {
	cfg     Config
	send    func(m ...*gomail.Message) error
	limiter *rate.Limiter
}

// NewSMTPService returns a gomail-backed Service.
func NewSMTPService(cfg Config) Service {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = !cfg.UseTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return newSMTPService(cfg, d.DialAndSend)
}

func newSMTPService(cfg Config, send func(m ...*gomail.Message) error) *smtpService {
	s := &smtpService{cfg: cfg, send: send}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return s
}

func (s *smtpService) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("email rate limit: %w", err)
		}
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromEmail, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type noopService struct {
	logger *logger.Logger
}

// NewNoopService drops every message. Used when SMTP is not configured.
func NewNoopService(log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &noopService{logger: log}
}

func (s *noopService) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Debug("Email delivery disabled, dropping message", "to", to, "subject", subject)
	return nil
}
