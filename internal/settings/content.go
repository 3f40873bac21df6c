package settings

import (
	"fmt"
	"net/url"
	"strings"
)

// Placeholder is served wherever an image setting is empty.
const Placeholder = "/static/placeholder.svg"

// Paragraphs splits text on blank lines, trims each paragraph and drops
// the empty ones.
func Paragraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ImageOr returns src, or fallback when src is blank.
func ImageOr(src, fallback string) string {
	if strings.TrimSpace(src) == "" {
		return fallback
	}
	return src
}

// Validate checks the URL-valued leaves. Each must be empty, a site path
// such as /uploads/hero.jpg, or an absolute http(s) URL.
func Validate(s SiteSettings) error {
	for _, f := range fields {
		if !f.url {
			continue
		}
		if err := checkURL(*f.ref(&s)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidURL, f.key, err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
