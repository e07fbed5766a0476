package checker

import (
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
)

// HostChecker probes a single host: ICMP reachability, HTTP status, open
// TCP ports and the TLS certificate it serves.
type HostChecker struct {
	HTTPTimeout    time.Duration
	PortTimeout    time.Duration
	SSLTimeout     time.Duration
	PingTimeout    time.Duration
	PingPrivileged bool     // Raw ICMP sockets instead of unprivileged UDP pings
	PingLocations  []string // Logical probe labels; padded to MinPingProbes
	DefaultPorts   []int    // Used by ScanPorts when no ports are given
	Pinger         PingFunc // Defaults to an ICMP echo via pro-bing
	Logger         *zap.Logger

	// certParsers is the ordered certificate parsing chain used by CheckSSL.
	certParsers []CertificateParser
}

// NewHostChecker returns a HostChecker with every timeout set to its default.
func NewHostChecker(logger *zap.Logger) *HostChecker {
	return &HostChecker{
		HTTPTimeout: constants.HTTPCheckTimeout,
		PortTimeout: constants.PortConnectTimeout,
		SSLTimeout:  constants.SSLConnectTimeout,
		PingTimeout: constants.PingTimeout,
		Logger:      logger,
	}
}

// Name returns the checker name
func (h *HostChecker) Name() string {
	return "host diagnostics"
}

func (h *HostChecker) logger() *zap.Logger {
	return loggerOrNop(h.Logger)
}
