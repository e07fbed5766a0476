package checker

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

// PortState is the observed state of a TCP port.
type PortState string

const (
	PortOpen   PortState = "open"
	PortClosed PortState = "closed"
	// PortFiltered is never produced by a connect scan.
	PortFiltered PortState = "filtered"
)

// PortProbeResult contains information about a scanned port
type PortProbeResult struct {
	Port    int       `json:"port"`
	Service string    `json:"service"`
	State   PortState `json:"state"`
}

// PortScanResult is the outcome of ScanPorts, ordered by port.
type PortScanResult struct {
	Host         string            `json:"host"`
	Ports        []PortProbeResult `json:"ports"`
	OpenPorts    int               `json:"open_ports"`
	ScanDuration int64             `json:"scan_duration_ms"`
	ScannedAt    time.Time         `json:"scanned_at"`
}

// defaultPorts is the curated common-services set scanned when none are given.
var defaultPorts = []int{
	21,   // FTP
	22,   // SSH
	23,   // Telnet
	25,   // SMTP
	53,   // DNS
	80,   // HTTP
	110,  // POP3
	143,  // IMAP
	443,  // HTTPS
	445,  // SMB
	993,  // IMAPS
	995,  // POP3S
	3306, // MySQL
	3389, // RDP
	5432, // PostgreSQL
	6379, // Redis
	8080, // HTTP Alt
	8443, // HTTPS Alt
}

var serviceNames = map[int]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	143:   "IMAP",
	443:   "HTTPS",
	445:   "SMB",
	587:   "SMTP Submission",
	993:   "IMAPS",
	995:   "POP3S",
	1433:  "MSSQL",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP Alt",
	8443:  "HTTPS Alt",
	27017: "MongoDB",
}

// ServiceName returns the well-known service for port, or "Unknown".
func ServiceName(port int) string {
	if service, ok := serviceNames[port]; ok {
		return service
	}
	return "Unknown"
}

// DefaultPorts returns a copy of the ports scanned when none are requested.
func DefaultPorts() []int {
	out := make([]int, len(defaultPorts))
	copy(out, defaultPorts)
	return out
}

// ScanPorts connects to every port concurrently, each under its own timeout.
// A successful connect means open; anything else means closed.
func (h *HostChecker) ScanPorts(ctx context.Context, host string, ports []int) (*PortScanResult, error) {
	target, err := validate.Host(ExtractHost(host))
	if err != nil {
		return nil, err
	}

	if len(ports) == 0 {
		ports = h.DefaultPorts
	}
	if len(ports) == 0 {
		ports = defaultPorts
	}
	ports, err = validate.Ports(ports)
	if err != nil {
		return nil, err
	}

	timeout := durationOr(h.PortTimeout, constants.PortConnectTimeout)
	start := time.Now()

	results := make([]PortProbeResult, len(ports))
	var g errgroup.Group
	for i, port := range ports {
		g.Go(func() error {
			results[i] = h.probePort(ctx, target, port, timeout)
			return nil
		})
	}
	_ = g.Wait()

	scan := &PortScanResult{
		Host:         target,
		Ports:        results,
		ScanDuration: elapsedMillis(start),
		ScannedAt:    time.Now().UTC(),
	}
	for _, r := range results {
		if r.State == PortOpen {
			scan.OpenPorts++
		}
	}
	h.logger().Debug("port scan complete",
		zap.String("host", target), zap.Int("ports", len(ports)), zap.Int("open", scan.OpenPorts))
	return scan, nil
}

func (h *HostChecker) probePort(ctx context.Context, host string, port int, timeout time.Duration) PortProbeResult {
	result := PortProbeResult{
		Port:    port,
		Service: ServiceName(port),
		State:   PortClosed,
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return result
	}
	_ = conn.Close()
	result.State = PortOpen
	return result
}
