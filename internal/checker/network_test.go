package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

func TestHostChecker_Name(t *testing.T) {
	checker := &HostChecker{}
	if got := checker.Name(); got != "host diagnostics" {
		t.Errorf("HostChecker.Name() = %v, want %v", got, "host diagnostics")
	}
}

func TestServiceName(t *testing.T) {
	tests := []struct {
		port int
		want string
	}{
		{80, "HTTP"},
		{443, "HTTPS"},
		{22, "SSH"},
		{3306, "MySQL"},
		{5432, "PostgreSQL"},
		{6379, "Redis"},
		{27017, "MongoDB"},
		{9999, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("port_%d", tt.port), func(t *testing.T) {
			if got := ServiceName(tt.port); got != tt.want {
				t.Errorf("ServiceName(%d) = %v, want %v", tt.port, got, tt.want)
			}
		})
	}
}

// closedPort returns a local port that nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}

func TestScanPorts_OpenAndClosed(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	openPort := listener.Addr().(*net.TCPAddr).Port
	closed := closedPort(t)

	checker := &HostChecker{PortTimeout: 500 * time.Millisecond}
	result, err := checker.ScanPorts(context.Background(), "127.0.0.1", []int{openPort, closed, openPort})
	if err != nil {
		t.Fatalf("ScanPorts() error = %v", err)
	}

	if len(result.Ports) != 2 {
		t.Fatalf("expected duplicates to be removed, got %+v", result.Ports)
	}
	if result.Ports[0].Port > result.Ports[1].Port {
		t.Errorf("expected ports sorted ascending, got %+v", result.Ports)
	}
	if result.OpenPorts != 1 {
		t.Errorf("OpenPorts = %d, want 1", result.OpenPorts)
	}

	for _, p := range result.Ports {
		want := PortClosed
		if p.Port == openPort {
			want = PortOpen
		}
		if p.State != want {
			t.Errorf("port %d state = %s, want %s", p.Port, p.State, want)
		}
		if p.Service == "" {
			t.Errorf("port %d has no service name", p.Port)
		}
	}
	if result.ScanDuration < 0 {
		t.Errorf("negative scan duration %d", result.ScanDuration)
	}
}

func TestScanPorts_Validation(t *testing.T) {
	checker := &HostChecker{}

	tests := []struct {
		name  string
		host  string
		ports []int
		want  error
	}{
		{"port zero", "127.0.0.1", []int{0}, diagerrors.ErrValidation},
		{"port above range", "127.0.0.1", []int{80, 70000}, diagerrors.ErrValidation},
		{"bad host", "bad..host", []int{80}, diagerrors.ErrInvalidDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := checker.ScanPorts(context.Background(), tt.host, tt.ports)
			if !errors.Is(err, tt.want) {
				t.Errorf("ScanPorts() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScanPorts_DefaultPorts(t *testing.T) {
	checker := &HostChecker{DefaultPorts: []int{closedPort(t)}, PortTimeout: 200 * time.Millisecond}
	result, err := checker.ScanPorts(context.Background(), "127.0.0.1", nil)
	if err != nil {
		t.Fatalf("ScanPorts() error = %v", err)
	}
	if len(result.Ports) != 1 || result.Ports[0].State != PortClosed {
		t.Errorf("unexpected result %+v", result.Ports)
	}

	if len(DefaultPorts()) == 0 {
		t.Error("expected a curated default port list")
	}
}
