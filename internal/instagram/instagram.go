// Package instagram shows recent posts from the chef's account. Posts come
// from an RSS or Atom bridge of the account; without one, or when the
// bridge is down, a fixed set of placeholder posts is shown.
package instagram

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"chefsite/internal/security/netutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

const (
	maxFeedBytes = 5 << 20
	maxPosts     = 12
	placeholder  = "/static/placeholder.svg"
)

type Post struct {
	ID       string
	ImageURL string
	Caption  string
	Link     string
	PostedAt *time.Time
}

// Placeholders are shown until a feed is configured
func Placeholders() []Post {
	return []Post{
		{ID: "1", ImageURL: placeholder, Caption: "Delicious appetizers for tonight's event!"},
		{ID: "2", ImageURL: placeholder, Caption: "Behind the scenes at our latest photoshoot"},
		{ID: "3", ImageURL: placeholder, Caption: "New menu item coming soon!"},
	}
}

type Service struct {
	feedURL       string
	ttl           time.Duration
	allowLoopback bool
	logger        *logrus.Logger
	parser        *gofeed.Parser
	client        *http.Client
	now           func() time.Time

	mu        sync.Mutex
	posts     []Post
	fetchedAt time.Time
}

type Option func(*Service)

// WithLoopback permits feeds on 127.0.0.1, for local bridges and tests
func WithLoopback() Option {
	return func(s *Service) { s.allowLoopback = true }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

func NewService(feedURL string, ttl time.Duration, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	s := &Service{
		feedURL: strings.TrimSpace(feedURL),
		ttl:     ttl,
		logger:  logger,
		parser:  gofeed.NewParser(),
		client: &http.Client{Timeout: 15 * time.Second, Transport: transport, CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		}},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Posts returns the latest posts. It never fails: on error the last good
// result is reused, and without one the placeholders are returned.
func (s *Service) Posts(ctx context.Context) []Post {
	if s.feedURL == "" {
		return Placeholders()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.posts != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.posts
	}

	posts, err := s.fetch(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("url", s.feedURL).Warn("instagram feed fetch failed")
		if s.posts != nil {
			return s.posts
		}
		return Placeholders()
	}

	s.posts = posts
	s.fetchedAt = s.now()
	return posts
}

func (s *Service) fetch(ctx context.Context) ([]Post, error) {
	u, err := netutil.CheckURL(s.feedURL, s.allowLoopback)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", "chefsite/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	feed, err := s.parser.Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %w", err)
	}

	posts := make([]Post, 0, len(feed.Items))
	for i, item := range feed.Items {
		if len(posts) == maxPosts {
			break
		}
		posts = append(posts, toPost(i, item))
	}
	return posts, nil
}

func toPost(i int, item *gofeed.Item) Post {
	p := Post{
		ID:   item.GUID,
		Link: item.Link,
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("%d", i+1)
	}
	if item.PublishedParsed != nil {
		p.PostedAt = item.PublishedParsed
	}

	body := item.Description
	if body == "" {
		body = item.Content
	}
	img, text := scanHTML(body)

	switch {
	case item.Image != nil && item.Image.URL != "":
		p.ImageURL = item.Image.URL
	case img != "":
		p.ImageURL = img
	default:
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				p.ImageURL = enc.URL
				break
			}
		}
	}
	if p.ImageURL == "" {
		p.ImageURL = placeholder
	}

	p.Caption = text
	if p.Caption == "" {
		p.Caption = strings.TrimSpace(item.Title)
	}
	return p
}

// scanHTML pulls the first image and the plain text out of a post body
func scanHTML(body string) (img, text string) {
	if strings.TrimSpace(body) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", strings.TrimSpace(body)
	}
	img, _ = doc.Find("img").First().Attr("src")
	text = strings.Join(strings.Fields(doc.Text()), " ")
	return img, text
}
