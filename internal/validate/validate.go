// Package validate implements the minimal input re-validation the analyzers
// perform before any value is used in an outbound query.
package validate

import (
	"net/netip"
	"net/url"
	"regexp"
	"sort"
	"strings"

	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
	"golang.org/x/net/idna"
)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
	minPort         = 1
	maxPort         = 65535
)

var (
	labelPattern   = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	numericPattern = regexp.MustCompile(`^[0-9]+$`)
)

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// Domain validates raw and returns the lowercased ASCII form.
// Internationalized names are converted to punycode.
func Domain(raw string) (string, error) {
	name := strings.TrimSuffix(strings.TrimSpace(raw), ".")
	if name == "" {
		return "", diagerrors.New(diagerrors.CodeInvalidDomain, "domain is required")
	}

	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", diagerrors.Wrap(diagerrors.CodeInvalidDomain, "domain contains invalid characters", err)
	}
	ascii = strings.ToLower(ascii)

	if len(ascii) > maxDomainLength {
		return "", diagerrors.Newf(diagerrors.CodeInvalidDomain, "domain exceeds %d characters", maxDomainLength)
	}

	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", diagerrors.New(diagerrors.CodeInvalidDomain, "domain must contain at least two labels")
	}
	for _, label := range labels {
		if label == "" {
			return "", diagerrors.New(diagerrors.CodeInvalidDomain, "domain contains an empty label")
		}
		if len(label) > maxLabelLength {
			return "", diagerrors.Newf(diagerrors.CodeInvalidDomain, "domain label exceeds %d characters", maxLabelLength)
		}
		if !labelPattern.MatchString(label) {
			return "", diagerrors.New(diagerrors.CodeInvalidDomain, "domain label has an invalid format")
		}
	}
	if numericPattern.MatchString(labels[len(labels)-1]) {
		return "", diagerrors.New(diagerrors.CodeInvalidDomain, "top-level domain cannot be numeric")
	}

	return ascii, nil
}

// IP validates an IPv4 or IPv6 literal and returns its canonical form.
func IP(raw string) (string, error) {
	addr, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(raw), "[]"))
	if err != nil {
		return "", diagerrors.Wrap(diagerrors.CodeInvalidIP, "invalid IP address", err)
	}
	return addr.Unmap().String(), nil
}

// IsIP reports whether raw is an IP literal.
func IsIP(raw string) bool {
	_, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(raw), "[]"))
	return err == nil
}

// IsPrivateIP reports whether raw is an IP in a private, loopback, link-local or shared range.
func IsPrivateIP(raw string) bool {
	addr, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(raw), "[]"))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range privatePrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Host accepts either an IP literal or a domain name.
func Host(raw string) (string, error) {
	if IsIP(raw) {
		return IP(raw)
	}
	return Domain(raw)
}

// Port checks that port lies in the TCP range.
func Port(port int) error {
	if port < minPort || port > maxPort {
		return diagerrors.Newf(diagerrors.CodeValidation, "port %d is out of range (%d-%d)", port, minPort, maxPort).
			WithDetail("port", port)
	}
	return nil
}

// Ports validates every entry, then returns the deduplicated ports in ascending order.
func Ports(ports []int) ([]int, error) {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if err := Port(p); err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

// HTTPURL requires an explicit http or https scheme and a host.
func HTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeValidation, "invalid URL", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, diagerrors.New(diagerrors.CodeValidation, "URL must start with http:// or https://")
	}
	if u.Hostname() == "" {
		return nil, diagerrors.New(diagerrors.CodeValidation, "URL must include a host")
	}
	if _, err := Host(u.Hostname()); err != nil && u.Hostname() != "localhost" {
		return nil, err
	}
	return u, nil
}
