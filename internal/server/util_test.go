package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{
			name:      "Short text unchanged",
			input:     "Short text",
			maxLength: 20,
			expected:  "Short text",
		},
		{
			name:      "Breaks at word boundary",
			input:     "Braised short rib with polenta",
			maxLength: 20,
			expected:  "Braised short...",
		},
		{
			name:      "Counts runes not bytes",
			input:     "jalapeño jalapeño jalapeño",
			maxLength: 12,
			expected:  "jalapeño...",
		},
		{
			name:      "Tiny limit",
			input:     "Enchiladas",
			maxLength: 2,
			expected:  "...",
		},
		{
			name:      "Empty",
			input:     "",
			maxLength: 10,
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateText(tt.input, tt.maxLength); got != tt.expected {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.input, tt.maxLength, got, tt.expected)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{" Ana@Example.com ", "ana@example.com", true},
		{"bo@example.com", "bo@example.com", true},
		{"Bo <bo@example.com>", "", false},
		{"not-an-email", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeEmail(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizeEmail(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, http.StatusBadRequest, "bad things")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := rec.Body.String(); body != "{\"error\":\"bad things\"}\n" {
		t.Errorf("Body = %q", body)
	}
}
