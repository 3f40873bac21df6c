package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"
)

type mailgunProvider struct {
	mg     *mailgun.MailgunImpl
	from   string
	logger *logrus.Logger
}

func init() {
	Register("mailgun", newMailgunProvider)
}

func newMailgunProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: mailgun API key", ErrProviderNotConfigured)
	}
	if cfg.Domain == "" {
		return nil, errors.New("mailgun domain is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("mailgun from address is required")
	}

	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	cfg.Logger.WithField("domain", cfg.Domain).Info("initialized mailgun client")
	return &mailgunProvider{mg: mg, from: cfg.from(), logger: cfg.Logger}, nil
}

func (p *mailgunProvider) Name() string { return "mailgun" }

func (p *mailgunProvider) Send(ctx context.Context, msg Message) error {
	message := p.mg.NewMessage(p.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	_, id, err := p.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	p.logger.WithFields(logrus.Fields{"to": msg.To, "id": id}).Debug("mailgun accepted message")
	return nil
}
