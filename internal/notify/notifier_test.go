package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func verifyNoLeaks(t *testing.T) {
	goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// fakeProvider records messages and fails for chosen recipients.
type fakeProvider struct {
	mu       sync.Mutex
	sent     []Message
	failFor  map[string]error
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Send(ctx context.Context, msg Message) error {
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		max := atomic.LoadInt32(&p.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&p.maxSeen, max, n) {
			break
		}
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := p.failFor[msg.To]; err != nil {
		return err
	}
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()
	return nil
}

func testEvent() Event {
	return Event{
		ID:          "ev-1",
		Date:        time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
		Description: "Valentine tasting menu.\n\nFive courses, wine pairing.",
		ImageURL:    "/uploads/valentine.jpg",
	}
}

func TestSendEventNotification_AllDelivered(t *testing.T) {
	defer verifyNoLeaks(t)

	provider := &fakeProvider{}
	n := NewNotifier(provider, testLogger(), Config{Workers: 3, Site: Site{Title: "Chef Margaret", URL: "https://chef.example.com"}})

	outcome, err := n.SendEventNotification(context.Background(), testEvent(), []string{
		"john@example.com", "Jane Smith <jane@example.com>", "JOHN@example.com", " mike@example.com ",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com", "john@example.com", "mike@example.com"}, outcome.Sent)
	assert.Empty(t, outcome.Failed)

	require.Len(t, provider.sent, 3)
	for _, msg := range provider.sent {
		assert.Equal(t, "Chef Margaret: New event on Wednesday, February 14, 2024", msg.Subject)
		assert.Contains(t, msg.Text, "Valentine tasting menu.")
		assert.Contains(t, msg.HTML, `src="https://chef.example.com/uploads/valentine.jpg"`)
		assert.Contains(t, msg.HTML, "<p>Five courses, wine pairing.</p>")
	}
}

func TestSendEventNotification_PartialFailure(t *testing.T) {
	defer verifyNoLeaks(t)

	bounce := errors.New("mailbox unavailable")
	provider := &fakeProvider{failFor: map[string]error{"jane@example.com": bounce}}
	n := NewNotifier(provider, testLogger(), Config{Workers: 2})

	outcome, err := n.SendEventNotification(context.Background(), testEvent(), []string{
		"john@example.com", "jane@example.com", "not-an-address",
	})
	require.Error(t, err)

	var notifyErr *NotificationError
	require.True(t, errors.As(err, &notifyErr))
	assert.Equal(t, "ev-1", notifyErr.EventID)
	assert.Equal(t, 3, notifyErr.Total)
	assert.ElementsMatch(t, []string{"jane@example.com", "not-an-address"}, notifyErr.Recipients())

	assert.Equal(t, []string{"john@example.com"}, outcome.Sent)
	for _, f := range outcome.Failed {
		if f.Recipient == "jane@example.com" {
			assert.ErrorIs(t, f.Err, bounce)
		}
	}
}

func TestSendEventNotification_NoRetry(t *testing.T) {
	defer verifyNoLeaks(t)

	var calls int32
	provider := &countingProvider{calls: &calls, err: errors.New("boom")}
	n := NewNotifier(provider, testLogger(), Config{Workers: 1})

	_, err := n.SendEventNotification(context.Background(), testEvent(), []string{"john@example.com"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendEventNotification_NoRecipients(t *testing.T) {
	n := NewNotifier(&fakeProvider{}, testLogger(), Config{})

	_, err := n.SendEventNotification(context.Background(), testEvent(), []string{"", "  "})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestSendEventNotification_WorkerBound(t *testing.T) {
	defer verifyNoLeaks(t)

	provider := &fakeProvider{delay: 20 * time.Millisecond}
	n := NewNotifier(provider, testLogger(), Config{Workers: 2})

	recipients := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	outcome, err := n.SendEventNotification(context.Background(), testEvent(), recipients)
	require.NoError(t, err)
	assert.Len(t, outcome.Sent, 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&provider.maxSeen), int32(2))
}

func TestSendEventNotification_Cancelled(t *testing.T) {
	defer verifyNoLeaks(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &fakeProvider{}
	n := NewNotifier(provider, testLogger(), Config{Workers: 1})

	outcome, err := n.SendEventNotification(ctx, testEvent(), []string{"a@example.com", "b@example.com"})
	require.Error(t, err)
	assert.Empty(t, outcome.Sent)
	assert.Len(t, outcome.Failed, 2)
	for _, f := range outcome.Failed {
		assert.ErrorIs(t, f.Err, context.Canceled)
	}
}

func TestSendEventNotification_CancelledWhileRateLimited(t *testing.T) {
	defer verifyNoLeaks(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the first send takes the only immediate slot; the others wait on
	// the limiter and the cancel lands while they do
	provider := &fakeProvider{}
	n := NewNotifier(provider, testLogger(), Config{Workers: 3, RatePerSecond: 2})
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	outcome, err := n.SendEventNotification(ctx, testEvent(),
		[]string{"a@example.com", "b@example.com", "c@example.com"})

	var nerr *NotificationError
	require.ErrorAs(t, err, &nerr)
	assert.Len(t, outcome.Sent, 1)
	assert.Len(t, provider.sent, 1)
	require.Len(t, outcome.Failed, 2)
	for _, f := range outcome.Failed {
		assert.ErrorIs(t, f.Err, context.Canceled)
	}
}

type countingProvider struct {
	calls *int32
	err   error
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Send(ctx context.Context, msg Message) error {
	atomic.AddInt32(p.calls, 1)
	return p.err
}
