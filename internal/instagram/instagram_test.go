package instagram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>chef.margaret</title>
  <link>https://www.instagram.com/chef.margaret/</link>
  <item>
    <title>Short rib night</title>
    <link>https://www.instagram.com/p/abc/</link>
    <guid>abc</guid>
    <pubDate>Mon, 12 Feb 2024 18:00:00 +0000</pubDate>
    <description><![CDATA[<img src="https://cdn.example.com/abc.jpg"><p>Braised short rib,   tonight only.</p>]]></description>
  </item>
  <item>
    <title>Market haul</title>
    <link>https://www.instagram.com/p/def/</link>
    <guid>def</guid>
    <description></description>
    <enclosure url="https://cdn.example.com/def.jpg" type="image/jpeg" length="100"/>
  </item>
</channel>
</rss>`

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPosts_NoFeedUsesPlaceholders(t *testing.T) {
	svc := NewService("", time.Minute, testLogger())
	posts := svc.Posts(context.Background())
	if len(posts) != 3 {
		t.Fatalf("Expected 3 placeholder posts, got %d", len(posts))
	}
	if posts[0].Caption != "Delicious appetizers for tonight's event!" {
		t.Errorf("Unexpected first caption %q", posts[0].Caption)
	}
	if posts[0].ImageURL != placeholder {
		t.Errorf("Expected placeholder image, got %q", posts[0].ImageURL)
	}
}

func TestPosts_ParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, sampleFeed)
	}))
	defer srv.Close()

	svc := NewService(srv.URL, time.Minute, testLogger(), WithLoopback())
	posts := svc.Posts(context.Background())
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "abc" || first.ImageURL != "https://cdn.example.com/abc.jpg" {
		t.Errorf("Unexpected first post %+v", first)
	}
	if first.Caption != "Braised short rib, tonight only." {
		t.Errorf("Expected collapsed caption, got %q", first.Caption)
	}
	if first.PostedAt == nil {
		t.Errorf("Expected PostedAt to be parsed")
	}

	second := posts[1]
	if second.ImageURL != "https://cdn.example.com/def.jpg" {
		t.Errorf("Expected enclosure image, got %q", second.ImageURL)
	}
	if second.Caption != "Market haul" {
		t.Errorf("Expected title as caption, got %q", second.Caption)
	}
}

func TestPosts_CachesAndFallsBack(t *testing.T) {
	var hits int32
	var failing int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if atomic.LoadInt32(&failing) == 1 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		io.WriteString(w, sampleFeed)
	}))
	defer srv.Close()

	now := time.Date(2024, 2, 12, 12, 0, 0, 0, time.UTC)
	svc := NewService(srv.URL, 10*time.Minute, testLogger(), WithLoopback())
	svc.now = func() time.Time { return now }

	if got := len(svc.Posts(context.Background())); got != 2 {
		t.Fatalf("Expected 2 posts, got %d", got)
	}
	svc.Posts(context.Background())
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Expected cached result within ttl, got %d fetches", hits)
	}

	atomic.StoreInt32(&failing, 1)
	now = now.Add(11 * time.Minute)
	posts := svc.Posts(context.Background())
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("Expected refetch after ttl, got %d fetches", hits)
	}
	if len(posts) != 2 || posts[0].ID != "abc" {
		t.Errorf("Expected last good posts on failure, got %+v", posts)
	}
}

func TestPosts_BadFeedWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "this is not a feed")
	}))
	defer srv.Close()

	svc := NewService(srv.URL, time.Minute, testLogger(), WithLoopback())
	posts := svc.Posts(context.Background())
	if len(posts) != len(Placeholders()) {
		t.Errorf("Expected placeholders, got %+v", posts)
	}
}

func TestPosts_LoopbackBlockedByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("feed on loopback should not be fetched")
	}))
	defer srv.Close()

	svc := NewService(srv.URL, time.Minute, testLogger())
	posts := svc.Posts(context.Background())
	if len(posts) != len(Placeholders()) {
		t.Errorf("Expected placeholders, got %+v", posts)
	}
}
