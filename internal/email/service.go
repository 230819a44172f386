// Package email sends transactional mail through the Resend API.
// Delivery is disabled by default; a disabled service logs and returns.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/config"
)

type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

// TicketData fills the ticket confirmation template.
type TicketData struct {
	ParticipantName string
	EventTitle      string
	EventLocation   string
	ScheduleDate    string
	TicketID        int64
	QRDataURI       template.URL
	CurrentYear     int
}

// NewService parses the HTML templates and, when enabled, builds the
// Resend client. templatesDir points at web/email/templates.
func NewService(cfg config.EmailConfig, templatesDir string, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("email enabled but RESEND_API_KEY is empty")
		}
	}

	templates, err := template.ParseGlob(filepath.Join(templatesDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// SendTicket emails the participant their ticket with the QR code
// embedded inline.
func (s *Service) SendTicket(ctx context.Context, to string, data TicketData) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().Str("to", to).Int64("ticket_id", data.TicketID).Msg("email service disabled, skipping ticket email")
		return nil
	}

	if data.CurrentYear == 0 {
		data.CurrentYear = time.Now().Year()
	}
	htmlBody, err := s.renderTemplate("ticket.html", data)
	if err != nil {
		return fmt.Errorf("render ticket template: %w", err)
	}

	subject := fmt.Sprintf("Your ticket for %s", data.EventTitle)
	if err := s.sendViaResend(ctx, to, subject, htmlBody); err != nil {
		return fmt.Errorf("send ticket email: %w", err)
	}

	s.logger.Info().Str("to", to).Int64("ticket_id", data.TicketID).Msg("ticket email sent")
	return nil
}

func (s *Service) renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
