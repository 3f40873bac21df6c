package server

import "testing"

func TestSanitizeFooter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
		{
			name:     "plain text is escaped",
			input:    "Tacos & Tamales <3",
			expected: "Tacos &amp; Tamales &lt;3",
		},
		{
			name:     "allowed markup kept",
			input:    "<strong>Oak Cliff</strong>, Texas<br>Open weekends",
			expected: "<strong>Oak Cliff</strong>, Texas<br>Open weekends",
		},
		{
			name:     "external link gets rel",
			input:    `<a href="https://example.com" onclick="steal()">Menu</a>`,
			expected: `<a href="https://example.com" rel="noopener noreferrer">Menu</a>`,
		},
		{
			name:     "site and mailto links",
			input:    `<a href="/contact">Contact</a> <a href="mailto:chef@example.com">Email</a>`,
			expected: `<a href="/contact">Contact</a> <a href="mailto:chef@example.com">Email</a>`,
		},
		{
			name:     "javascript href dropped",
			input:    `<a href="javascript:alert(1)">Click</a>`,
			expected: `<a>Click</a>`,
		},
		{
			name:     "protocol relative href dropped",
			input:    `<a href="//evil.example">x</a>`,
			expected: `<a>x</a>`,
		},
		{
			name:     "script removed with content",
			input:    `Hi<script>alert("x")</script> there`,
			expected: "Hi there",
		},
		{
			name:     "unknown tags unwrapped",
			input:    `<div><p>Chef <img src=x onerror=alert(1)>Margaret</p></div>`,
			expected: "Chef Margaret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(sanitizeFooter(tt.input)); got != tt.expected {
				t.Errorf("sanitizeFooter(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSafeHref(t *testing.T) {
	tests := map[string]bool{
		"":                      false,
		"/about":                true,
		"//evil.example":        false,
		"https://example.com/x": true,
		"http://":               false,
		"mailto:chef@x.com":     true,
		"tel:+12145550100":      true,
		"javascript:alert(1)":   false,
		"data:text/html,hi":     false,
	}
	for href, want := range tests {
		if got := safeHref(href); got != want {
			t.Errorf("safeHref(%q) = %v, want %v", href, got, want)
		}
	}
}
