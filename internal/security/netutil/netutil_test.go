package netutil

import (
	"errors"
	"net"
	"testing"
)

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.169.254", true},
		{"::1", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		if got := IsPrivateIP(net.ParseIP(tt.ip)); got != tt.private {
			t.Errorf("IsPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
		}
	}
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		allowLoopback bool
		wantErr       bool
		blocked       bool
	}{
		{"public ip", "https://8.8.8.8/feed", false, false, false},
		{"ftp scheme", "ftp://8.8.8.8/feed", false, true, false},
		{"no host", "https:///feed", false, true, false},
		{"private ip", "http://10.0.0.5/feed", false, true, true},
		{"metadata ip", "http://169.254.169.254/latest", true, true, true},
		{"loopback blocked", "http://127.0.0.1:8080/feed", false, true, true},
		{"loopback allowed", "http://127.0.0.1:8080/feed", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckURL(tt.url, tt.allowLoopback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if tt.blocked && !errors.Is(err, ErrBlockedDestination) {
				t.Errorf("Expected ErrBlockedDestination, got %v", err)
			}
		})
	}
}
