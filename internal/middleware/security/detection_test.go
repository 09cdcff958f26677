package security

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:1234",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded via trusted proxy",
			remoteAddr: "127.0.0.1:1234",
			xff:        "203.0.113.7, 10.0.0.1",
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip via trusted proxy",
			remoteAddr: "10.0.0.5:1234",
			xri:        "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded header from untrusted peer is ignored",
			remoteAddr: "203.0.113.7:1234",
			xff:        "1.2.3.4",
			want:       "203.0.113.7",
		},
		{
			name:       "garbage forwarded value falls back to peer",
			remoteAddr: "127.0.0.1:1234",
			xff:        "not-an-ip",
			want:       "127.0.0.1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/balances", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				r.Header.Set("X-Real-IP", tc.xri)
			}
			if got := d.ExtractClientIP(r); got != tc.want {
				t.Errorf("ExtractClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		name   string
		target string
		want   bool
	}{
		{"normal api call", "/api/transactions", false},
		{"balances with viewer", "/api/balances?viewer=mara", false},
		{"path traversal", "/api/../../etc/passwd", true},
		{"wordpress probe", "/wp-admin/setup.php", true},
		{"dotfile probe in query", "/api/transactions?file=.env", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.target, nil)
			if got := d.DetectSuspiciousRequest(r); got != tc.want {
				t.Errorf("DetectSuspiciousRequest(%q) = %v, want %v", tc.target, got, tc.want)
			}
		})
	}

	if d.GetMetrics().SuspiciousRequests != 3 {
		t.Errorf("SuspiciousRequests = %d, want 3", d.GetMetrics().SuspiciousRequests)
	}
}
