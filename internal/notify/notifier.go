package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

var ErrNoRecipients = errors.New("no recipients")

// Failure is one recipient that did not get the announcement
type Failure struct {
	Recipient string
	Err       error
}

// Outcome summarises a send
type Outcome struct {
	EventID string
	Sent    []string
	Failed  []Failure
}

// NotificationError is returned when at least one recipient failed.
// Sends are not retried; calling again may deliver twice to the
// recipients that already succeeded.
type NotificationError struct {
	EventID  string
	Failures []Failure
	Total    int
}

func (e *NotificationError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Recipient)
	}
	return fmt.Sprintf("event %s: %d of %d notifications failed (%s)",
		e.EventID, len(e.Failures), e.Total, strings.Join(names, ", "))
}

// Recipients returns the failed addresses
func (e *NotificationError) Recipients() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Recipient)
	}
	return out
}

type Config struct {
	Workers int
	// RatePerSecond caps sends per second; zero means unlimited
	RatePerSecond int
	// SendTimeout bounds each provider call
	SendTimeout time.Duration
	Site        Site
}

// Notifier fans one event out to many recipients
type Notifier struct {
	provider Provider
	logger   *logrus.Logger
	limiter  ratelimit.Limiter
	workers  int
	timeout  time.Duration
	site     Site
}

func NewNotifier(provider Provider, logger *logrus.Logger, cfg Config) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSecond > 0 {
		limiter = ratelimit.New(cfg.RatePerSecond, ratelimit.WithoutSlack)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Notifier{
		provider: provider,
		logger:   logger,
		limiter:  limiter,
		workers:  cfg.Workers,
		timeout:  cfg.SendTimeout,
		site:     cfg.Site,
	}
}

// ProviderName reports which provider delivers messages
func (n *Notifier) ProviderName() string {
	return n.provider.Name()
}

// SendEventNotification emails ev to every recipient, one message each.
// Duplicate addresses are sent once. Invalid addresses and failed sends
// are collected into a *NotificationError; the returned Outcome is always
// populated so callers can show who was reached.
func (n *Notifier) SendEventNotification(ctx context.Context, ev Event, recipients []string) (*Outcome, error) {
	outcome := &Outcome{EventID: ev.ID}

	valid, invalid := normalizeRecipients(recipients)
	outcome.Failed = append(outcome.Failed, invalid...)
	if len(valid) == 0 && len(invalid) == 0 {
		return outcome, ErrNoRecipients
	}

	msg, err := Render(n.site, ev)
	if err != nil {
		return outcome, fmt.Errorf("error rendering notification: %w", err)
	}

	log := n.logger.WithFields(logrus.Fields{
		"event":      ev.ID,
		"recipients": len(valid),
		"provider":   n.provider.Name(),
	})
	log.Info("sending event notification")

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, n.workers)
	)
	record := func(to string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			outcome.Failed = append(outcome.Failed, Failure{Recipient: to, Err: err})
			return
		}
		outcome.Sent = append(outcome.Sent, to)
	}

dispatch:
	for i, to := range valid {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for _, rest := range valid[i:] {
				record(rest, ctx.Err())
			}
			break dispatch
		}

		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				record(to, err)
				return
			}
			// Take cannot be interrupted, so a cancel that lands while
			// waiting for a slot is only seen here.
			n.limiter.Take()
			if err := ctx.Err(); err != nil {
				record(to, err)
				return
			}

			sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
			defer cancel()

			m := msg
			m.To = to
			err := n.provider.Send(sendCtx, m)
			if err != nil {
				n.logger.WithError(err).WithField("to", to).Warn("event notification failed")
			}
			record(to, err)
		}(to)
	}
	wg.Wait()

	sort.Strings(outcome.Sent)
	sort.Slice(outcome.Failed, func(i, j int) bool {
		return outcome.Failed[i].Recipient < outcome.Failed[j].Recipient
	})

	log.WithFields(logrus.Fields{
		"sent":   len(outcome.Sent),
		"failed": len(outcome.Failed),
	}).Info("event notification finished")

	if len(outcome.Failed) > 0 {
		return outcome, &NotificationError{
			EventID:  ev.ID,
			Failures: outcome.Failed,
			Total:    len(outcome.Sent) + len(outcome.Failed),
		}
	}
	return outcome, nil
}

// normalizeRecipients lower-cases, de-duplicates and validates addresses
func normalizeRecipients(recipients []string) ([]string, []Failure) {
	seen := map[string]bool{}
	var valid []string
	var invalid []Failure
	for _, raw := range recipients {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			key := strings.ToLower(raw)
			if !seen[key] {
				seen[key] = true
				invalid = append(invalid, Failure{Recipient: raw, Err: fmt.Errorf("invalid address: %w", err)})
			}
			continue
		}
		key := strings.ToLower(addr.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		valid = append(valid, key)
	}
	return valid, invalid
}
