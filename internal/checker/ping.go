package checker

import (
	"context"
	"errors"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

// PingFunc sends one echo request to host and returns the round trip time.
type PingFunc func(ctx context.Context, host string, timeout time.Duration, privileged bool) (time.Duration, error)

// PingResult is the outcome of one logical ping probe.
type PingResult struct {
	Location     string `json:"location"`
	Host         string `json:"host"`
	Alive        bool   `json:"alive"`
	ResponseTime int64  `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
}

// defaultPingLocations label the logical probes. All of them leave from this
// machine; the label only identifies the probe.
var defaultPingLocations = []string{"US East", "Europe West", "Asia Pacific"}

var errNoReply = errors.New("no echo reply received")

// Ping sends one probe per location concurrently. A failing probe is reported
// as not alive with the timeout as its response time; only an invalid host
// is returned as an error.
func (h *HostChecker) Ping(ctx context.Context, host string, locations []string) ([]PingResult, error) {
	target, err := validate.Host(ExtractHost(host))
	if err != nil {
		return nil, err
	}

	labels := pingLabels(locations, h.PingLocations)
	timeout := durationOr(h.PingTimeout, constants.PingTimeout)
	pinger := h.Pinger
	if pinger == nil {
		pinger = icmpPing
	}

	results := make([]PingResult, len(labels))
	var g errgroup.Group
	for i, label := range labels {
		g.Go(func() error {
			res := PingResult{Location: label, Host: target}
			rtt, err := pinger(ctx, target, timeout, h.PingPrivileged)
			if err != nil {
				h.logger().Debug("ping probe failed",
					zap.String("host", target), zap.String("location", label), zap.Error(err))
				res.ResponseTime = timeout.Milliseconds()
				res.Error = classifyNetError(err).String()
				if errors.Is(err, errNoReply) {
					res.Error = err.Error()
				}
			} else {
				res.Alive = true
				res.ResponseTime = rtt.Milliseconds()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// pingLabels picks the requested labels, then the configured ones, and pads
// with the defaults up to MinPingProbes.
func pingLabels(requested, configured []string) []string {
	labels := requested
	if len(labels) == 0 {
		labels = configured
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, constants.MinPingProbes)
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	for _, l := range defaultPingLocations {
		if len(out) >= constants.MinPingProbes {
			break
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func icmpPing(ctx context.Context, host string, timeout time.Duration, privileged bool) (time.Duration, error) {
	p, err := probing.NewPinger(host)
	if err != nil {
		return 0, err
	}
	p.Count = 1
	p.Timeout = timeout
	p.SetPrivileged(privileged)

	if err := p.RunWithContext(ctx); err != nil {
		return 0, err
	}
	stats := p.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, errNoReply
	}
	return stats.AvgRtt, nil
}
