package checker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

func TestPing_AllProbesReported(t *testing.T) {
	var calls atomic.Int32
	checker := &HostChecker{
		PingTimeout: time.Second,
		Pinger: func(ctx context.Context, host string, timeout time.Duration, privileged bool) (time.Duration, error) {
			if calls.Add(1) == 2 {
				return 0, errors.New("sendto: operation not permitted")
			}
			return 12 * time.Millisecond, nil
		},
	}

	results, err := checker.Ping(context.Background(), "example.com", nil)
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 probes, got %d", len(results))
	}

	alive, dead := 0, 0
	for _, r := range results {
		if r.Host != "example.com" {
			t.Errorf("Host = %q", r.Host)
		}
		if r.Location == "" {
			t.Error("probe without location label")
		}
		if r.Alive {
			alive++
			if r.ResponseTime != 12 {
				t.Errorf("ResponseTime = %d, want 12", r.ResponseTime)
			}
			continue
		}
		dead++
		if r.ResponseTime != time.Second.Milliseconds() {
			t.Errorf("failed probe ResponseTime = %d, want the timeout", r.ResponseTime)
		}
		if r.Error == "" {
			t.Error("failed probe should carry an error")
		}
	}
	if alive != 2 || dead != 1 {
		t.Errorf("alive=%d dead=%d, want 2 and 1", alive, dead)
	}
}

func TestPing_InvalidHost(t *testing.T) {
	checker := &HostChecker{}
	_, err := checker.Ping(context.Background(), "-bad-.com", nil)
	if !errors.Is(err, diagerrors.ErrInvalidDomain) {
		t.Fatalf("expected INVALID_DOMAIN, got %v", err)
	}
}

func TestPingLabels(t *testing.T) {
	tests := []struct {
		name       string
		requested  []string
		configured []string
		want       []string
	}{
		{"defaults", nil, nil, []string{"US East", "Europe West", "Asia Pacific"}},
		{"configured padded", nil, []string{"Lab"}, []string{"Lab", "US East", "Europe West"}},
		{"requested wins", []string{"A", "B", "C", "D"}, []string{"Lab"}, []string{"A", "B", "C", "D"}},
		{"duplicates dropped", []string{"US East", "US East"}, nil, []string{"US East", "Europe West", "Asia Pacific"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pingLabels(tt.requested, tt.configured)
			if len(got) != len(tt.want) {
				t.Fatalf("pingLabels() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pingLabels()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
