package registration

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

// startWHOISServer answers every query line with respond(query) and returns
// the listener port and a snapshot func of the queries received so far.
func startWHOISServer(t *testing.T, respond func(query string) string) (string, func() []string) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	var mu sync.Mutex
	queries := []string{}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				q := strings.TrimSpace(line)
				mu.Lock()
				queries = append(queries, q)
				mu.Unlock()
				_, _ = c.Write([]byte(respond(q)))
			}(conn)
		}
	}()

	_, port, _ := net.SplitHostPort(l.Addr().String())
	return port, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), queries...)
	}
}

const verisignAnswer = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Registrar URL: http://res-dom.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2025-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
>>> Last update of whois database: 2024-10-01T00:00:00Z <<<
`

func TestParseWHOIS(t *testing.T) {
	record := parseWHOIS("example.com", verisignAnswer)

	if record.Registrar != "RESERVED-Internet Assigned Numbers Authority" {
		t.Errorf("Registrar = %q", record.Registrar)
	}
	if want := time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC); !record.RegistrationDate.Equal(want) {
		t.Errorf("RegistrationDate = %v, want %v", record.RegistrationDate, want)
	}
	if record.ExpirationDate.Year() != 2025 {
		t.Errorf("ExpirationDate = %v", record.ExpirationDate)
	}
	if len(record.NameServers) != 2 || record.NameServers[1] != "b.iana-servers.net" {
		t.Errorf("NameServers = %v", record.NameServers)
	}
	if len(record.Status) != 2 || record.Status[0] != "clientDeleteProhibited" {
		t.Errorf("Status = %v", record.Status)
	}
	if !record.DNSSEC {
		t.Error("expected DNSSEC to be reported")
	}
	if record.Source != SourceWHOIS {
		t.Errorf("Source = %q", record.Source)
	}
}

func TestParseWHOIS_Heuristics(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantRegistrar string
		wantStatus    string
	}{
		{
			name:       "available",
			raw:        "No match for \"UNREGISTERED-EXAMPLE.COM\".\n>>> Last update of whois database <<<\n",
			wantStatus: "available",
		},
		{
			name:          "privacy protected",
			raw:           "Domain Name: example.org\nRegistrant Name: REDACTED FOR PRIVACY\nCreated: 2001-01-01\n",
			wantRegistrar: PrivacyProtectedRegistrar,
		},
		{
			name:          "registrar kept",
			raw:           "Registrar: Example Registrar, Inc.\nRegistrant Name: REDACTED FOR PRIVACY\n",
			wantRegistrar: "Example Registrar, Inc.",
		},
		{
			name:          "alternate labels",
			raw:           "domain: example.nl\nSponsoring Registrar: Registrar NL\nregistered: 14-Aug-1995\nnserver: ns1.example.nl.\nstate: ok\n",
			wantRegistrar: "Registrar NL",
			wantStatus:    "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := parseWHOIS("example.com", tt.raw)
			if record.Registrar != tt.wantRegistrar {
				t.Errorf("Registrar = %q, want %q", record.Registrar, tt.wantRegistrar)
			}
			if tt.wantStatus != "" {
				found := false
				for _, s := range record.Status {
					if s == tt.wantStatus {
						found = true
					}
				}
				if !found {
					t.Errorf("Status = %v, want it to contain %q", record.Status, tt.wantStatus)
				}
			}
		})
	}
}

func TestParseWHOIS_UnparseableDates(t *testing.T) {
	record := parseWHOIS("example.com", "Registrar: R\nCreation Date: 0000-00-00\nExpiry Date: \n")
	if !record.RegistrationDate.Equal(Epoch) || !record.ExpirationDate.Equal(Epoch) {
		t.Errorf("expected epoch dates, got %v and %v", record.RegistrationDate, record.ExpirationDate)
	}
	if record.NameServers == nil || record.Status == nil {
		t.Error("collections must never be nil")
	}
}

func TestWHOISClient_Referral(t *testing.T) {
	port, queries := startWHOISServer(t, func(q string) string {
		if q == "com" {
			return "domain:       COM\nrefer:        127.0.0.1\n"
		}
		return verisignAnswer
	})

	client := &WHOISClient{ReferralServer: "127.0.0.1", Port: port, Timeout: time.Second}
	raw, server, err := client.Query(context.Background(), "example.com", "com")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if server != "127.0.0.1" {
		t.Errorf("server = %q", server)
	}
	if !strings.Contains(raw, "Registry Expiry Date") {
		t.Error("expected the registry answer")
	}
	if got := queries(); len(got) != 2 || got[0] != "com" || got[1] != "example.com" {
		t.Errorf("queries = %v", got)
	}
}

func TestWHOISClient_Failures(t *testing.T) {
	noReferral, _ := startWHOISServer(t, func(string) string { return "domain: ZZ\n" })
	empty, _ := startWHOISServer(t, func(string) string { return "  \n" })

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	closedAddr := closed.Addr().String()
	_ = closed.Close()

	tests := []struct {
		name   string
		client *WHOISClient
		want   error
	}{
		{"no referral", &WHOISClient{ReferralServer: "127.0.0.1", Port: noReferral}, diagerrors.ErrWHOISLookupFailed},
		{"empty answer", &WHOISClient{Server: net.JoinHostPort("127.0.0.1", empty)}, diagerrors.ErrWHOISLookupFailed},
		{"refused", &WHOISClient{Server: closedAddr}, diagerrors.ErrWHOISLookupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.client.Timeout = time.Second
			_, _, err := tt.client.Query(context.Background(), "example.zz", "zz")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Query() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWHOISClient_Timeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				<-done
			}(conn)
		}
	}()

	client := &WHOISClient{Server: l.Addr().String(), Timeout: 200 * time.Millisecond}
	start := time.Now()
	_, _, err = client.Query(context.Background(), "example.com", "com")
	if !errors.Is(err, diagerrors.ErrTimeout) {
		t.Fatalf("Query() error = %v, want TIMEOUT_ERROR", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not honoured, took %v", elapsed)
	}
}

func TestReferralServer(t *testing.T) {
	if got := referralServer("% IANA WHOIS server\n\ndomain: COM\nwhois: whois.verisign-grs.com\n"); got != "whois.verisign-grs.com" {
		t.Errorf("referralServer() = %q", got)
	}
	if got := referralServer("domain: ZZ\n"); got != "" {
		t.Errorf("referralServer() = %q, want empty", got)
	}
}
