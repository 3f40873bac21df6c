package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

type sendgridProvider struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logrus.Logger
}

func init() {
	Register("sendgrid", newSendgridProvider)
}

func newSendgridProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: sendgrid API key", ErrProviderNotConfigured)
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("sendgrid from address is required")
	}

	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.APIBase != "" {
		client.Request.BaseURL = strings.TrimRight(cfg.APIBase, "/") + "/v3/mail/send"
	}
	return &sendgridProvider{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    cfg.Logger,
	}, nil
}

func (p *sendgridProvider) Name() string { return "sendgrid" }

func (p *sendgridProvider) Send(ctx context.Context, msg Message) error {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(p.fromName, p.fromEmail))
	message.Subject = msg.Subject

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail("", msg.To))
	message.AddPersonalizations(personalization)

	message.AddContent(mail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		message.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid API error: %d - %s", response.StatusCode, response.Body)
	}
	p.logger.WithFields(logrus.Fields{"to": msg.To, "status": response.StatusCode}).Debug("sendgrid accepted message")
	return nil
}
