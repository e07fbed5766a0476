package checker

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // http, https, or empty when the input carried none
	Host     string // Hostname (without protocol, path, port)
	Port     int    // Port if specified, 0 otherwise
	Path     string // Path if specified
}

// ParseTarget parses a target string into structured components.
// This handles various input formats:
//   - example.com
//   - https://example.com
//   - https://example.com:8443/path
//   - example.com:8443
//   - [2001:db8::1]:443
func ParseTarget(target string) *TargetInfo {
	target = strings.TrimSpace(target)
	info := &TargetInfo{Original: target}

	raw := target
	if ip := net.ParseIP(strings.Trim(raw, "[]")); ip != nil {
		info.Host = ip.String()
		return info
	}

	parsed, err := url.Parse(raw)
	// "example.com:8443" parses with scheme "example.com"; anything with a dot
	// in the scheme is treated as a bare host.
	if err != nil || parsed.Scheme == "" || parsed.Host == "" || strings.Contains(parsed.Scheme, ".") {
		parsed, err = url.Parse("//" + raw)
	} else {
		info.Scheme = strings.ToLower(parsed.Scheme)
	}

	if err == nil && parsed != nil {
		info.Host = strings.ToLower(parsed.Hostname())
		if p, convErr := strconv.Atoi(parsed.Port()); convErr == nil {
			info.Port = p
		}
		info.Path = parsed.Path
	}

	// Fallback: strip the obvious parts by hand.
	if info.Host == "" {
		host := raw
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		host = strings.Split(host, "/")[0]
		if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[:i], ":") {
			if p, convErr := strconv.Atoi(host[i+1:]); convErr == nil {
				info.Port = p
			}
			host = host[:i]
		}
		info.Host = strings.ToLower(strings.Trim(host, "[]"))
	}

	return info
}

// ExtractHost extracts just the hostname from a target.
// This is useful for DNS lookups where we need the bare hostname.
func ExtractHost(target string) string {
	return ParseTarget(target).Host
}
