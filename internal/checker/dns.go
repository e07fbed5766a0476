package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

// RecordType is a DNS record type supported by the resolver.
type RecordType string

const (
	RecordA     RecordType = "A"
	RecordAAAA  RecordType = "AAAA"
	RecordMX    RecordType = "MX"
	RecordTXT   RecordType = "TXT"
	RecordCNAME RecordType = "CNAME"
	RecordNS    RecordType = "NS"
	RecordSOA   RecordType = "SOA"
)

// AllRecordTypes is the default set queried by LookupRecords, in output order.
var AllRecordTypes = []RecordType{RecordA, RecordAAAA, RecordMX, RecordTXT, RecordCNAME, RecordNS, RecordSOA}

var qtypes = map[RecordType]uint16{
	RecordA:     dns.TypeA,
	RecordAAAA:  dns.TypeAAAA,
	RecordMX:    dns.TypeMX,
	RecordTXT:   dns.TypeTXT,
	RecordCNAME: dns.TypeCNAME,
	RecordNS:    dns.TypeNS,
	RecordSOA:   dns.TypeSOA,
}

// ParseRecordType normalizes s into a supported RecordType.
func ParseRecordType(s string) (RecordType, error) {
	rt := RecordType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := qtypes[rt]; !ok {
		return "", diagerrors.Newf(diagerrors.CodeValidation, "unsupported record type %q", s)
	}
	return rt, nil
}

// DNSRecord is one resolved record. TTL is only reported for A, AAAA and SOA;
// the other types carry 0.
type DNSRecord struct {
	Type  RecordType `json:"type"`
	Value string     `json:"value"`
	TTL   uint32     `json:"ttl"`
}

// DNSResult is the outcome of LookupRecords.
type DNSResult struct {
	Domain       string       `json:"domain"`
	Records      []DNSRecord  `json:"records"`
	QueriedTypes []RecordType `json:"queried_types"`
	Timestamp    time.Time    `json:"timestamp"`
}

// RecordsByType returns the records of type t in result order.
func (r *DNSResult) RecordsByType(t RecordType) []DNSRecord {
	var out []DNSRecord
	for _, rec := range r.Records {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out
}

// Exchanger sends a single DNS message to a server. *dns.Client satisfies it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// DNSChecker resolves records and compares propagation across resolvers.
type DNSChecker struct {
	Timeout      time.Duration
	NameServer   []string        // System resolver override; empty reads ResolvConf
	ResolvConf   string          // Defaults to /etc/resolv.conf
	Locations    []ProbeLocation // Propagation catalog; empty uses DefaultLocations
	MaxLocations int             // Default cap for propagation checks
	Client       Exchanger
	Logger       *zap.Logger
}

// errNoData marks a NOERROR answer that carried no record of the requested type.
var errNoData = errors.New("no data")

// errNXDomain marks an authoritative "name does not exist" answer.
var errNXDomain = errors.New("non-existent domain")

// LookupRecords queries the system resolver for every requested type.
// A type that fails is skipped; the lookup only fails when no type produced a record.
func (d *DNSChecker) LookupRecords(ctx context.Context, domain string, types []RecordType) (*DNSResult, error) {
	name, err := validate.Domain(domain)
	if err != nil {
		return nil, err
	}

	if len(types) == 0 {
		types = AllRecordTypes
	}
	types, err = normalizeTypes(types)
	if err != nil {
		return nil, err
	}

	logger := loggerOrNop(d.Logger).With(zap.String("domain", name))
	servers := d.systemServers()

	perType := make([][]DNSRecord, len(types))
	errs := make([]error, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, rt := range types {
		g.Go(func() error {
			records, err := d.resolveWith(gctx, servers, name, rt)
			if err != nil {
				logger.Debug("record lookup failed", zap.String("type", string(rt)), zap.Error(err))
				errs[i] = err
				return nil
			}
			perType[i] = records
			return nil
		})
	}
	_ = g.Wait()

	result := &DNSResult{
		Domain:       name,
		Records:      []DNSRecord{},
		QueriedTypes: types,
	}
	for _, records := range perType {
		result.Records = append(result.Records, records...)
	}
	result.Timestamp = time.Now().UTC()

	if len(result.Records) > 0 {
		return result, nil
	}

	allTimeouts := true
	reasons := make(map[string]string, len(types))
	for i, rt := range types {
		if errs[i] == nil {
			errs[i] = errNoData
		}
		if classifyNetError(errs[i]) != failureTimeout {
			allTimeouts = false
		}
		reasons[string(rt)] = errs[i].Error()
	}
	if allTimeouts {
		return nil, diagerrors.Newf(diagerrors.CodeTimeout, "DNS lookup for %s timed out", name).
			WithDetail("types", reasons)
	}
	return nil, diagerrors.Newf(diagerrors.CodeDNSLookupFailed, "no DNS records found for %s", name).
		WithDetail("types", reasons)
}

// resolveWith tries each server in order, moving on only on transport failures.
func (d *DNSChecker) resolveWith(ctx context.Context, servers []string, name string, rt RecordType) ([]DNSRecord, error) {
	var lastErr error
	for _, server := range servers {
		resp, _, err := d.exchange(ctx, server, name, qtypes[rt])
		if err != nil {
			lastErr = err
			continue
		}
		return answerRecords(resp, rt)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no resolver configured")
	}
	return nil, lastErr
}

// answerRecords converts a response into records of type rt, or a typed lookup error.
func answerRecords(resp *dns.Msg, rt RecordType) ([]DNSRecord, error) {
	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, errNXDomain
	default:
		return nil, fmt.Errorf("resolver answered %s", dns.RcodeToString[resp.Rcode])
	}

	want := qtypes[rt]
	var records []DNSRecord
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != want {
			continue
		}
		if rec, ok := convertRR(rr); ok {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return nil, errNoData
	}
	return records, nil
}

func convertRR(rr dns.RR) (DNSRecord, bool) {
	switch v := rr.(type) {
	case *dns.A:
		return DNSRecord{Type: RecordA, Value: v.A.String(), TTL: v.Hdr.Ttl}, true
	case *dns.AAAA:
		return DNSRecord{Type: RecordAAAA, Value: v.AAAA.String(), TTL: v.Hdr.Ttl}, true
	case *dns.MX:
		return DNSRecord{Type: RecordMX, Value: fmt.Sprintf("%d %s", v.Preference, trimDot(v.Mx))}, true
	case *dns.TXT:
		return DNSRecord{Type: RecordTXT, Value: strings.Join(v.Txt, "")}, true
	case *dns.CNAME:
		return DNSRecord{Type: RecordCNAME, Value: trimDot(v.Target)}, true
	case *dns.NS:
		return DNSRecord{Type: RecordNS, Value: trimDot(v.Ns)}, true
	case *dns.SOA:
		value := fmt.Sprintf("%s %s %d %d %d %d %d",
			trimDot(v.Ns), trimDot(v.Mbox), v.Serial, v.Refresh, v.Retry, v.Expire, v.Minttl)
		return DNSRecord{Type: RecordSOA, Value: value, TTL: v.Hdr.Ttl}, true
	}
	return DNSRecord{}, false
}

// exchange sends one query with its own timeout, retrying over TCP on truncation.
func (d *DNSChecker) exchange(ctx context.Context, server, name string, qtype uint16) (*dns.Msg, time.Duration, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true
	m.SetEdns0(4096, false)

	timeout := durationOr(d.Timeout, constants.DNSQueryTimeout)
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := serverAddress(server)
	resp, rtt, err := d.client(timeout, "udp").ExchangeContext(qctx, m, addr)
	if err != nil {
		return nil, rtt, err
	}
	if resp.Truncated && d.Client == nil {
		return d.client(timeout, "tcp").ExchangeContext(qctx, m, addr)
	}
	return resp, rtt, nil
}

func (d *DNSChecker) client(timeout time.Duration, network string) Exchanger {
	if d.Client != nil {
		return d.Client
	}
	return &dns.Client{Net: network, Timeout: timeout}
}

// systemServers returns the resolvers the host is configured with.
func (d *DNSChecker) systemServers() []string {
	if len(d.NameServer) > 0 {
		return d.NameServer
	}
	path := d.ResolvConf
	if path == "" {
		path = "/etc/resolv.conf"
	}
	conf, err := dns.ClientConfigFromFile(path)
	if err != nil || len(conf.Servers) == 0 {
		loggerOrNop(d.Logger).Debug("resolv.conf unavailable, using loopback resolver", zap.Error(err))
		return []string{"127.0.0.1:53"}
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return servers
}

func normalizeTypes(types []RecordType) ([]RecordType, error) {
	seen := make(map[RecordType]struct{}, len(types))
	out := make([]RecordType, 0, len(types))
	for _, t := range types {
		rt, err := ParseRecordType(string(t))
		if err != nil {
			return nil, err
		}
		if _, ok := seen[rt]; ok {
			continue
		}
		seen[rt] = struct{}{}
		out = append(out, rt)
	}
	return out, nil
}

func trimDot(s string) string {
	return strings.TrimSuffix(s, ".")
}
