package checker

import "testing"

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target     string
		wantScheme string
		wantHost   string
		wantPort   int
	}{
		{"example.com", "", "example.com", 0},
		{"https://Example.com", "https", "example.com", 0},
		{"https://example.com:8443/path", "https", "example.com", 8443},
		{"example.com:8443", "", "example.com", 8443},
		{"http://example.com", "http", "example.com", 0},
		{"127.0.0.1", "", "127.0.0.1", 0},
		{"[2001:db8::1]:443", "", "2001:db8::1", 443},
		{"2001:db8::1", "", "2001:db8::1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			info := ParseTarget(tt.target)
			if info.Scheme != tt.wantScheme {
				t.Errorf("Scheme = %q, want %q", info.Scheme, tt.wantScheme)
			}
			if info.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", info.Host, tt.wantHost)
			}
			if info.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", info.Port, tt.wantPort)
			}
		})
	}
}

func TestExtractHost(t *testing.T) {
	if got := ExtractHost("https://www.example.com/login"); got != "www.example.com" {
		t.Errorf("ExtractHost() = %q, want www.example.com", got)
	}
}
