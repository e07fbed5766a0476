package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

// localCatalog starts n servers answering zone and returns them as probe locations.
func localCatalog(t *testing.T, n int, zone testZone) []ProbeLocation {
	t.Helper()
	locations := make([]ProbeLocation, 0, n)
	for i := 0; i < n; i++ {
		addr := startDNSServer(t, zoneHandler(t, zone))
		locations = append(locations, ProbeLocation{
			Name:   fmt.Sprintf("Local %d", i+1),
			Server: addr,
			Region: RegionEurope,
		})
	}
	return locations
}

func TestCheckPropagation_FullyPropagated(t *testing.T) {
	checker := &DNSChecker{
		Timeout:   time.Second,
		Locations: localCatalog(t, 6, exampleZone),
	}

	status, err := checker.CheckPropagation(context.Background(), "example.com", RecordMX, PropagationOptions{})
	if err != nil {
		t.Fatalf("CheckPropagation() error = %v", err)
	}

	if len(status.Locations) != 6 {
		t.Fatalf("expected 6 location results, got %d", len(status.Locations))
	}
	if !status.FullyPropagated {
		t.Errorf("expected fully propagated, inconsistencies: %v", status.Inconsistencies)
	}
	if len(status.Inconsistencies) != 0 {
		t.Errorf("expected no inconsistencies, got %v", status.Inconsistencies)
	}
	for _, loc := range status.Locations {
		if loc.Status != LocationSuccess {
			t.Errorf("%s: status = %s", loc.Location.Name, loc.Status)
		}
		if loc.ResponseTime < 0 {
			t.Errorf("%s: negative response time", loc.Location.Name)
		}
	}
}

func TestCheckPropagation_MixedOutcomes(t *testing.T) {
	catalog := localCatalog(t, 3, exampleZone)

	stale := testZone{dns.TypeA: {"example.com. 300 IN A 203.0.113.7"}}
	catalog = append(catalog, ProbeLocation{
		Name:   "Stale",
		Server: startDNSServer(t, zoneHandler(t, stale)),
		Region: RegionAsiaPacific,
	})

	silent := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {})
	catalog = append(catalog, ProbeLocation{
		Name:   "Silent",
		Server: startDNSServer(t, silent),
		Region: RegionAsiaPacific,
	})

	empty := testZone{}
	catalog = append(catalog, ProbeLocation{
		Name:   "Empty",
		Server: startDNSServer(t, zoneHandler(t, empty)),
		Region: RegionAsiaPacific,
	})

	checker := &DNSChecker{Timeout: 200 * time.Millisecond, Locations: catalog}

	status, err := checker.CheckPropagation(context.Background(), "example.com", RecordA, PropagationOptions{})
	if err != nil {
		t.Fatalf("CheckPropagation() must not fail on probe errors: %v", err)
	}
	if len(status.Locations) != len(catalog) {
		t.Fatalf("expected %d results, got %d", len(catalog), len(status.Locations))
	}

	byName := make(map[string]LocationResult)
	for _, loc := range status.Locations {
		byName[loc.Location.Name] = loc
		if loc.Records == nil {
			t.Errorf("%s: records must never be nil", loc.Location.Name)
		}
	}

	if got := byName["Silent"].Status; got != LocationUnavailable {
		t.Errorf("Silent status = %s, want unavailable", got)
	}
	if got := byName["Empty"].Status; got != LocationFailure {
		t.Errorf("Empty status = %s, want failure", got)
	}
	if got := byName["Stale"].Status; got != LocationSuccess {
		t.Errorf("Stale status = %s, want success", got)
	}

	if status.FullyPropagated {
		t.Error("expected not fully propagated")
	}
	if len(status.Inconsistencies) != 1 || !strings.Contains(status.Inconsistencies[0], "Stale") {
		t.Errorf("unexpected inconsistencies: %v", status.Inconsistencies)
	}
}

func TestCheckPropagation_NotEnoughData(t *testing.T) {
	catalog := localCatalog(t, 1, exampleZone)
	for i := 0; i < 4; i++ {
		catalog = append(catalog, ProbeLocation{
			Name:   fmt.Sprintf("Empty %d", i),
			Server: startDNSServer(t, zoneHandler(t, testZone{})),
			Region: RegionEurope,
		})
	}
	checker := &DNSChecker{Timeout: time.Second, Locations: catalog}

	status, err := checker.CheckPropagation(context.Background(), "example.com", RecordA, PropagationOptions{})
	if err != nil {
		t.Fatalf("CheckPropagation() error = %v", err)
	}
	if status.FullyPropagated {
		t.Error("a single successful location cannot be fully propagated")
	}
	if len(status.Inconsistencies) != 0 {
		t.Errorf("expected no inconsistencies, got %v", status.Inconsistencies)
	}
}

func TestCheckPropagation_InvalidInput(t *testing.T) {
	checker := &DNSChecker{}

	if _, err := checker.CheckPropagation(context.Background(), "not a domain", RecordA, PropagationOptions{}); !errors.Is(err, diagerrors.ErrInvalidDomain) {
		t.Errorf("expected INVALID_DOMAIN, got %v", err)
	}
	if _, err := checker.CheckPropagation(context.Background(), "example.com", "PTR", PropagationOptions{}); !errors.Is(err, diagerrors.ErrValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	opts := PropagationOptions{CustomServers: []string{"resolver.example.net"}}
	if _, err := checker.CheckPropagation(context.Background(), "example.com", RecordA, opts); !errors.Is(err, diagerrors.ErrValidation) {
		t.Errorf("expected VALIDATION_ERROR for hostname server, got %v", err)
	}
}

func TestSelectLocations(t *testing.T) {
	checker := &DNSChecker{}

	t.Run("defaults capped", func(t *testing.T) {
		locs, err := checker.SelectLocations(PropagationOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(locs) != constants.DefaultPropagationLocations {
			t.Errorf("got %d locations, want %d", len(locs), constants.DefaultPropagationLocations)
		}
	})

	t.Run("custom servers padded to minimum", func(t *testing.T) {
		locs, err := checker.SelectLocations(PropagationOptions{CustomServers: []string{"192.0.2.1", "192.0.2.2:5353"}})
		if err != nil {
			t.Fatal(err)
		}
		if len(locs) != constants.MinPropagationLocations {
			t.Fatalf("got %d locations, want %d", len(locs), constants.MinPropagationLocations)
		}
		if locs[0].Server != "192.0.2.1" || locs[0].Region != RegionCustom {
			t.Errorf("custom server must come first: %+v", locs[0])
		}
		if locs[1].Server != "192.0.2.2:5353" {
			t.Errorf("custom server port must be kept: %+v", locs[1])
		}
	})

	t.Run("custom servers win over regions", func(t *testing.T) {
		locs, err := checker.SelectLocations(PropagationOptions{
			CustomServers: []string{"192.0.2.1"},
			Regions:       []string{RegionAsiaPacific},
		})
		if err != nil {
			t.Fatal(err)
		}
		if locs[0].Region != RegionCustom {
			t.Errorf("expected custom server first, got %+v", locs[0])
		}
	})

	t.Run("region filter", func(t *testing.T) {
		locs, err := checker.SelectLocations(PropagationOptions{Regions: []string{"ASIA-PACIFIC"}, MaxLocations: 3})
		if err != nil {
			t.Fatal(err)
		}
		if len(locs) != constants.MinPropagationLocations {
			t.Fatalf("got %d locations, want padding to %d", len(locs), constants.MinPropagationLocations)
		}
		for _, loc := range locs[:3] {
			if loc.Region != RegionAsiaPacific {
				t.Errorf("expected region-filtered locations first, got %+v", loc)
			}
		}
	})

	t.Run("hard upper bound", func(t *testing.T) {
		servers := make([]string, 0, 40)
		for i := 1; i <= 40; i++ {
			servers = append(servers, net.IPv4(198, 51, 100, byte(i)).String())
		}
		locs, err := checker.SelectLocations(PropagationOptions{CustomServers: servers, MaxLocations: 100})
		if err != nil {
			t.Fatal(err)
		}
		if len(locs) != constants.MaxPropagationLocations {
			t.Errorf("got %d locations, want %d", len(locs), constants.MaxPropagationLocations)
		}
	})

	t.Run("distinct servers", func(t *testing.T) {
		locs, err := checker.SelectLocations(PropagationOptions{CustomServers: []string{"8.8.8.8", "8.8.8.8:53"}})
		if err != nil {
			t.Fatal(err)
		}
		seen := make(map[string]bool)
		for _, loc := range locs {
			key := serverAddress(loc.Server)
			if seen[key] {
				t.Errorf("duplicate server %s", key)
			}
			seen[key] = true
		}
	})
}

func TestCompareLocations(t *testing.T) {
	ok := func(name string, values ...string) LocationResult {
		records := make([]DNSRecord, 0, len(values))
		for _, v := range values {
			records = append(records, DNSRecord{Type: RecordA, Value: v, TTL: 60})
		}
		return LocationResult{Location: ProbeLocation{Name: name}, Status: LocationSuccess, Records: records}
	}

	tests := []struct {
		name       string
		results    []LocationResult
		wantFull   bool
		wantIssues int
	}{
		{
			name:     "same records in different order",
			results:  []LocationResult{ok("a", "1.1.1.1", "2.2.2.2"), ok("b", "2.2.2.2", "1.1.1.1")},
			wantFull: true,
		},
		{
			name:       "different count",
			results:    []LocationResult{ok("a", "1.1.1.1"), ok("b", "1.1.1.1", "2.2.2.2")},
			wantIssues: 1,
		},
		{
			name:       "different value",
			results:    []LocationResult{ok("a", "1.1.1.1"), ok("b", "1.1.1.1"), ok("c", "9.9.9.9")},
			wantIssues: 1,
		},
		{
			name:    "single usable location",
			results: []LocationResult{ok("a", "1.1.1.1"), {Status: LocationUnavailable}},
		},
		{
			name:    "success without records is ignored",
			results: []LocationResult{ok("a", "1.1.1.1"), ok("b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, issues := compareLocations(tt.results)
			if full != tt.wantFull {
				t.Errorf("fullyPropagated = %v, want %v", full, tt.wantFull)
			}
			if len(issues) != tt.wantIssues {
				t.Errorf("inconsistencies = %v, want %d", issues, tt.wantIssues)
			}
		})
	}
}
