package rss

import (
	"encoding/xml"
	"io"
	"strings"
	"time"
)

const atomNS = "http://www.w3.org/2005/Atom"

// RSS is the root element of an RSS feed.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	AtomNS  string   `xml:"xmlns:atom,attr"`
	Channel Channel  `xml:"channel"`
}

// Channel represents the channel element in an RSS feed.
type Channel struct {
	XMLName       xml.Name `xml:"channel"`
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language,omitempty"`
	LastBuildDate string   `xml:"lastBuildDate,omitempty"` // RFC1123Z
	AtomLink      AtomLink `xml:"atom:link"`
	Items         []Item   `xml:"item"`
}

// AtomLink is the self reference feed readers expect.
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// Item represents an item element in an RSS feed.
type Item struct {
	XMLName     xml.Name   `xml:"item"`
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description,omitempty"`
	PubDate     string     `xml:"pubDate,omitempty"` // RFC1123Z
	GUID        GUID       `xml:"guid"`
	Enclosure   *Enclosure `xml:"enclosure,omitempty"`
}

type GUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type Enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

// Event is the part of a scheduled event that is published.
type Event struct {
	ID          string
	Date        time.Time
	Description string
	ImageURL    string
	CreatedAt   time.Time
}

// EventsFeed builds the feed of upcoming events. siteURL has no trailing
// slash; relative image paths are resolved against it.
func EventsFeed(title, siteURL string, events []Event, now time.Time) RSS {
	siteURL = strings.TrimRight(siteURL, "/")
	if title == "" {
		title = "Upcoming events"
	}

	items := make([]Item, 0, len(events))
	for _, ev := range events {
		item := Item{
			Title:       ev.Date.Format("Monday, January 2, 2006"),
			Link:        siteURL + "/#events",
			Description: ev.Description,
			PubDate:     ev.CreatedAt.UTC().Format(time.RFC1123Z),
			GUID:        GUID{Value: "event:" + ev.ID},
		}
		if ev.ImageURL != "" {
			img := ev.ImageURL
			if strings.HasPrefix(img, "/") {
				img = siteURL + img
			}
			item.Enclosure = &Enclosure{URL: img, Type: imageType(img)}
		}
		items = append(items, item)
	}

	return RSS{
		Version: "2.0",
		AtomNS:  atomNS,
		Channel: Channel{
			Title:         title,
			Link:          siteURL + "/",
			Description:   "Dinners, classes and tastings from " + title,
			Language:      "en-us",
			LastBuildDate: now.UTC().Format(time.RFC1123Z),
			AtomLink: AtomLink{
				Href: siteURL + "/events.xml",
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
}

// Write encodes the feed with an XML header.
func (r RSS) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Flush()
}

func imageType(u string) string {
	u = strings.ToLower(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	switch {
	case strings.HasSuffix(u, ".png"):
		return "image/png"
	case strings.HasSuffix(u, ".gif"):
		return "image/gif"
	case strings.HasSuffix(u, ".webp"):
		return "image/webp"
	case strings.HasSuffix(u, ".svg"):
		return "image/svg+xml"
	default:
		return "image/jpeg"
	}
}
