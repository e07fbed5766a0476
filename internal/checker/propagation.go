package checker

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

// LocationStatus is the outcome of one propagation probe.
type LocationStatus string

const (
	LocationSuccess     LocationStatus = "success"
	LocationFailure     LocationStatus = "failure"     // NXDOMAIN or no data
	LocationUnavailable LocationStatus = "unavailable" // timeout, refused, SERVFAIL, other
)

// LocationResult is produced for every probed location, even on error.
type LocationResult struct {
	Location     ProbeLocation  `json:"location"`
	Status       LocationStatus `json:"status"`
	Records      []DNSRecord    `json:"records"`
	ResponseTime int64          `json:"response_time_ms"`
	Error        string         `json:"error,omitempty"`
}

// PropagationStatus compares what every probed resolver returned.
type PropagationStatus struct {
	Domain          string           `json:"domain"`
	RecordType      RecordType       `json:"record_type"`
	FullyPropagated bool             `json:"fully_propagated"`
	Locations       []LocationResult `json:"locations"`
	Inconsistencies []string         `json:"inconsistencies"`
	CheckedAt       time.Time        `json:"checked_at"`
}

// PropagationOptions selects the probe set. CustomServers win over Regions,
// which win over the default catalog.
type PropagationOptions struct {
	Regions       []string
	MaxLocations  int
	CustomServers []string
}

// CheckPropagation queries every selected resolver concurrently and compares
// their answers. Individual probe failures only degrade that location.
func (d *DNSChecker) CheckPropagation(ctx context.Context, domain string, recordType RecordType, opts PropagationOptions) (*PropagationStatus, error) {
	name, err := validate.Domain(domain)
	if err != nil {
		return nil, err
	}
	if recordType == "" {
		recordType = RecordA
	}
	rt, err := ParseRecordType(string(recordType))
	if err != nil {
		return nil, err
	}

	locations, err := d.SelectLocations(opts)
	if err != nil {
		return nil, err
	}

	logger := loggerOrNop(d.Logger).With(zap.String("domain", name), zap.String("type", string(rt)))
	logger.Debug("starting propagation check", zap.Int("locations", len(locations)))

	results := make([]LocationResult, len(locations))
	var g errgroup.Group
	for i, loc := range locations {
		g.Go(func() error {
			results[i] = d.probeLocation(ctx, loc, name, rt)
			return nil
		})
	}
	_ = g.Wait()

	fully, inconsistencies := compareLocations(results)

	status := &PropagationStatus{
		Domain:          name,
		RecordType:      rt,
		FullyPropagated: fully,
		Locations:       results,
		Inconsistencies: inconsistencies,
		CheckedAt:       time.Now().UTC(),
	}
	logger.Debug("propagation check complete",
		zap.Bool("fully_propagated", fully),
		zap.Int("inconsistencies", len(inconsistencies)),
	)
	return status, nil
}

// SelectLocations resolves the probe set for opts: custom servers, then region
// filter, then defaults; capped at the max and padded to the minimum from the catalog.
func (d *DNSChecker) SelectLocations(opts PropagationOptions) ([]ProbeLocation, error) {
	catalog := d.Locations
	if len(catalog) == 0 {
		catalog = defaultLocations
	}

	var selected []ProbeLocation
	switch {
	case len(opts.CustomServers) > 0:
		for i, server := range opts.CustomServers {
			server = strings.TrimSpace(server)
			if err := validateServer(server); err != nil {
				return nil, err
			}
			selected = append(selected, ProbeLocation{
				Name:   fmt.Sprintf("Custom %d (%s)", i+1, server),
				Server: server,
				Region: RegionCustom,
			})
		}
	case len(opts.Regions) > 0:
		selected = FilterByRegion(catalog, opts.Regions)
	default:
		selected = append(selected, catalog...)
	}

	limit := opts.MaxLocations
	if limit <= 0 {
		limit = d.MaxLocations
	}
	if limit <= 0 {
		limit = constants.DefaultPropagationLocations
	}
	if limit > constants.MaxPropagationLocations {
		limit = constants.MaxPropagationLocations
	}

	seen := make(map[string]struct{})
	out := make([]ProbeLocation, 0, limit)
	for _, loc := range selected {
		if len(out) >= limit {
			break
		}
		key := serverAddress(loc.Server)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, loc)
	}

	for _, loc := range catalog {
		if len(out) >= constants.MinPropagationLocations {
			break
		}
		key := serverAddress(loc.Server)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, loc)
	}

	return out, nil
}

// probeLocation never fails: every outcome is folded into the LocationResult.
func (d *DNSChecker) probeLocation(ctx context.Context, loc ProbeLocation, name string, rt RecordType) LocationResult {
	result := LocationResult{
		Location: loc,
		Records:  []DNSRecord{},
	}

	start := time.Now()
	resp, _, err := d.exchange(ctx, loc.Server, name, qtypes[rt])
	result.ResponseTime = elapsedMillis(start)

	if err != nil {
		result.Status = LocationUnavailable
		result.Error = classifyNetError(err).String()
		return result
	}

	records, err := answerRecords(resp, rt)
	switch {
	case err == nil:
		result.Status = LocationSuccess
		result.Records = records
	case err == errNXDomain || err == errNoData:
		result.Status = LocationFailure
		result.Error = err.Error()
	default:
		result.Status = LocationUnavailable
		result.Error = err.Error()
	}
	return result
}

// compareLocations checks every successful location against the first one.
// Fewer than two usable answers means there is nothing to compare.
func compareLocations(results []LocationResult) (bool, []string) {
	inconsistencies := []string{}

	var usable []LocationResult
	for _, r := range results {
		if r.Status == LocationSuccess && len(r.Records) > 0 {
			usable = append(usable, r)
		}
	}
	if len(usable) < 2 {
		return false, inconsistencies
	}

	reference := usable[0]
	refRecords := sortedRecords(reference.Records)
	for _, other := range usable[1:] {
		otherRecords := sortedRecords(other.Records)
		if len(otherRecords) != len(refRecords) {
			inconsistencies = append(inconsistencies, fmt.Sprintf(
				"%s returned %d record(s) but %s returned %d",
				other.Location.Name, len(otherRecords), reference.Location.Name, len(refRecords)))
			continue
		}
		for i := range refRecords {
			if refRecords[i].Type != otherRecords[i].Type || refRecords[i].Value != otherRecords[i].Value {
				inconsistencies = append(inconsistencies, fmt.Sprintf(
					"%s returned different records than %s", other.Location.Name, reference.Location.Name))
				break
			}
		}
	}

	return len(inconsistencies) == 0, inconsistencies
}

func sortedRecords(records []DNSRecord) []DNSRecord {
	out := make([]DNSRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// validateServer accepts an IP literal, optionally with a port.
func validateServer(server string) error {
	host := server
	if h, port, err := net.SplitHostPort(server); err == nil {
		host = h
		p, err := strconv.Atoi(port)
		if err != nil {
			return diagerrors.Newf(diagerrors.CodeValidation, "custom DNS server %q has an invalid port", server)
		}
		if err := validate.Port(p); err != nil {
			return err
		}
	}
	if !validate.IsIP(host) {
		return diagerrors.Newf(diagerrors.CodeValidation, "custom DNS server %q must be an IP address", server)
	}
	return nil
}
