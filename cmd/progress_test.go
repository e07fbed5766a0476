package cmd

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressPrinterLifecycle(t *testing.T) {
	var out syncBuffer
	printer := newProgressPrinter(&out, 0, "batch")
	if printer.total != 1 {
		t.Fatalf("expected total to be clamped to 1, got %d", printer.total)
	}

	printer.Start()
	printer.Increment(true, 0.5)
	printer.Increment(false, 1.0)
	time.Sleep(350 * time.Millisecond) // allow ticker to tick at least once
	printer.Stop()
	printer.Stop()                    // second stop is a no-op
	time.Sleep(50 * time.Millisecond) // ensure loop goroutine exits

	output := out.String()
	if !strings.Contains(output, "Progress: 2/2") {
		t.Fatalf("expected summary progress, got %q", output)
	}
	if !strings.Contains(output, "OK:1") || !strings.Contains(output, "Fail:1") {
		t.Fatalf("expected OK/Fail counts in output, got %q", output)
	}
	if !strings.Contains(output, "Avg:0.75s") {
		t.Fatalf("expected average duration in output, got %q", output)
	}
}
