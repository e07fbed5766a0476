package checker

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// failureKind classifies a network-level failure so each analyzer can map it
// onto its own error codes.
type failureKind int

const (
	failureOther failureKind = iota
	failureTimeout
	failureNotFound
	failureRefused
	failureUnreachable
)

func (k failureKind) String() string {
	switch k {
	case failureTimeout:
		return "timeout"
	case failureNotFound:
		return "not found"
	case failureRefused:
		return "connection refused"
	case failureUnreachable:
		return "unreachable"
	default:
		return "error"
	}
}

// classifyNetError inspects err the way the dialers and resolvers surface it.
func classifyNetError(err error) failureKind {
	if err == nil {
		return failureOther
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return failureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return failureTimeout
		}
		return failureNotFound
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return failureRefused
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return failureUnreachable
	}

	// Some platforms only expose the errno through the message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return failureRefused
	case strings.Contains(msg, "no such host"):
		return failureNotFound
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return failureUnreachable
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return failureTimeout
	}
	return failureOther
}

// elapsedMillis returns the whole milliseconds since start, never negative.
func elapsedMillis(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
