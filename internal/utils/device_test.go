package utils

import "testing"

func TestDeviceName(t *testing.T) {
	cases := []struct {
		ua   string
		want string
	}{
		{"", "Unknown Device"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", "Chrome on Windows"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15", "Safari on macOS"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", "Firefox on Linux"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 CriOS/120.0 Mobile/15E148 Safari/604.1", "Chrome on iPhone"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0", "Edge on Windows"},
		{"curl/8.4.0", "Unknown Browser on Unknown OS"},
	}
	for _, c := range cases {
		if got := DeviceName(c.ua); got != c.want {
			t.Errorf("DeviceName(%q) = %q, want %q", c.ua, got, c.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	if got := ClientIP("10.0.0.1", ""); got != "10.0.0.1" {
		t.Errorf("direct ip: got %q", got)
	}
	if got := ClientIP("10.0.0.1", "203.0.113.7, 10.0.0.2"); got != "203.0.113.7" {
		t.Errorf("forwarded chain: got %q", got)
	}
	if got := ClientIP("", ""); got != "unknown" {
		t.Errorf("empty: got %q", got)
	}
}
