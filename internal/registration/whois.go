package registration

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/likexian/whois"
	"golang.org/x/net/proxy"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

const (
	whoisPort       = "43"
	ianaWHOISServer = "whois.iana.org"
)

// WHOISClient speaks the port-43 WHOIS protocol. Without a fixed Server the
// registry server is discovered through an IANA referral.
type WHOISClient struct {
	Server         string        // Fixed server, host or host:port
	ReferralServer string        // Defaults to whois.iana.org
	Port           string        // Port for servers given without one, defaults to 43
	Timeout        time.Duration // Per exchange
}

// Query returns the raw WHOIS text for domain and the server that produced it.
func (c *WHOISClient) Query(ctx context.Context, domain, tld string) (string, string, error) {
	server := c.Server
	if server == "" {
		referral := c.ReferralServer
		if referral == "" {
			referral = ianaWHOISServer
		}
		answer, err := c.exchange(ctx, referral, tld)
		if err != nil {
			return "", "", err
		}
		server = referralServer(answer)
		if server == "" {
			return "", "", diagerrors.Newf(diagerrors.CodeWHOISLookupFailed, "no WHOIS server is known for .%s", tld)
		}
	}

	raw, err := c.exchange(ctx, server, domain)
	if err != nil {
		return "", "", err
	}
	return raw, server, nil
}

// exchange sends one query through likexian/whois. Its dialer is pinned to
// the resolved address and bound to ctx; referral following stays off because
// the record parser reads the registry answer only.
func (c *WHOISClient) exchange(ctx context.Context, server, query string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = constants.WHOISQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := c.address(server)
	host, _, _ := net.SplitHostPort(addr)
	var d net.Dialer
	client := whois.NewClient().
		SetTimeout(timeout).
		SetDisableReferral(true).
		SetDialer(dialerFunc(func(network, _ string) (net.Conn, error) {
			return d.DialContext(ctx, network, addr)
		}))

	body, err := client.Whois(query, host)
	if err != nil {
		if ctx.Err() != nil || strings.Contains(err.Error(), "timeout") {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return "", whoisFailure(err, server)
	}
	if len(body) > constants.MaxResponseBodyBytes {
		body = body[:constants.MaxResponseBodyBytes]
	}
	if len(strings.TrimSpace(body)) == 0 {
		return "", diagerrors.Newf(diagerrors.CodeWHOISLookupFailed, "WHOIS server %s returned an empty answer", server)
	}
	return body, nil
}

// dialerFunc adapts a function to proxy.Dialer.
type dialerFunc func(network, addr string) (net.Conn, error)

var _ proxy.Dialer = dialerFunc(nil)

func (f dialerFunc) Dial(network, addr string) (net.Conn, error) {
	return f(network, addr)
}

func (c *WHOISClient) address(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	port := c.Port
	if port == "" {
		port = whoisPort
	}
	return net.JoinHostPort(server, port)
}

func whoisFailure(err error, server string) error {
	if isTimeout(err) {
		return diagerrors.Wrap(diagerrors.CodeTimeout, fmt.Sprintf("WHOIS query to %s timed out", server), err)
	}
	return diagerrors.Wrap(diagerrors.CodeWHOISLookupFailed, fmt.Sprintf("WHOIS query to %s failed", server), err)
}

// referralServer reads the "refer:" (or "whois:") line of an IANA answer.
func referralServer(answer string) string {
	scanner := bufio.NewScanner(strings.NewReader(answer))
	for scanner.Scan() {
		key, value, ok := splitWHOISLine(scanner.Text())
		if !ok {
			continue
		}
		if key == "refer" || key == "whois" {
			return value
		}
	}
	return ""
}

// splitWHOISLine returns the lowercased key and trimmed value of "Key: value".
func splitWHOISLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
		return "", "", false
	}
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(key)), value, true
}

var (
	registrarKeys = []string{"registrar", "sponsoring registrar", "registrar name", "registrar organization"}
	createdKeys   = []string{"creation date", "created", "created on", "registration date", "registered", "registered on", "domain registration date", "registration time"}
	expiresKeys   = []string{"registry expiry date", "registrar registration expiration date", "expiration date", "expiry date", "expires", "expires on", "expire date", "paid-till", "expiration time"}
	updatedKeys   = []string{"updated date", "last updated", "last modified", "last-update", "changed", "modified"}
	nsKeys        = []string{"name server", "nameserver", "nserver", "name servers", "nameservers"}
	statusKeys    = []string{"domain status", "status", "state"}
	dnssecKeys    = []string{"dnssec"}
)

var availableMarkers = []string{
	"no match for",
	"not found",
	"no data found",
	"no entries found",
	"domain not found",
	"status: free",
	"status: available",
	"is available for registration",
}

var privacyMarkers = []string{
	"redacted for privacy",
	"privacy protect",
	"whoisguard",
	"domains by proxy",
	"contact privacy",
	"withheld for privacy",
	"data protected",
}

// PrivacyProtectedRegistrar is reported when the registry hides the registrar.
const PrivacyProtectedRegistrar = "Privacy Protected"

// parseWHOIS extracts fields by case-insensitive label synonyms. The first
// value wins for single-valued fields.
func parseWHOIS(domain, raw string) *RegistrationRecord {
	record := newRecord(domain, SourceWHOIS)

	var created, expires, updated string
	var ns, status stringSet

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxResponseBodyBytes)
	for scanner.Scan() {
		key, value, ok := splitWHOISLine(scanner.Text())
		if !ok {
			continue
		}
		switch {
		case matches(key, registrarKeys):
			if record.Registrar == "" {
				record.Registrar = value
			}
		case matches(key, createdKeys):
			if created == "" {
				created = value
			}
		case matches(key, expiresKeys):
			if expires == "" {
				expires = value
			}
		case matches(key, updatedKeys):
			if updated == "" {
				updated = value
			}
		case matches(key, nsKeys):
			ns.add(normalizeNameServer(strings.Fields(value)[0]))
		case matches(key, statusKeys):
			// "clientTransferProhibited https://icann.org/epp#clientTransferProhibited"
			status.add(strings.Fields(value)[0])
		case matches(key, dnssecKeys):
			v := strings.ToLower(value)
			record.DNSSEC = strings.HasPrefix(v, "signed") || v == "yes"
		}
	}

	record.RegistrationDate = parseDate(created)
	record.ExpirationDate = parseDate(expires)
	record.UpdatedDate = parseDate(updated)
	record.NameServers = sortedCopy(ns.values())

	text := strings.ToLower(raw)
	if record.Registrar == "" && created == "" && containsAny(text, availableMarkers) {
		status.add("available")
	}
	if containsAny(text, privacyMarkers) && (record.Registrar == "" || containsAny(strings.ToLower(record.Registrar), privacyMarkers)) {
		record.Registrar = PrivacyProtectedRegistrar
	}
	record.Status = status.values()
	record.Timestamp = time.Now().UTC()
	return record
}

func matches(key string, synonyms []string) bool {
	for _, s := range synonyms {
		if key == s {
			return true
		}
	}
	return false
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
