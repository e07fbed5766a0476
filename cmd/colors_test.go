package cmd

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	original := color.NoColor
	color.NoColor = !enabled
	t.Cleanup(func() {
		color.NoColor = original
	})
}

func TestFormatStatusWithColor(t *testing.T) {
	withColor(t, true)

	tests := []struct {
		status  string
		colored bool
	}{
		{"success", true},
		{"Propagated", true},
		{"alive", true},
		{"error", true},
		{"DOWN", true},
		{"filtered", true},
		{"partial", true},
		{"pending", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := formatStatusWithColor(tt.status)
			if !strings.Contains(got, tt.status) {
				t.Fatalf("status text lost: %q", got)
			}
			if colored := strings.Contains(got, "\x1b["); colored != tt.colored {
				t.Fatalf("formatStatusWithColor(%q) = %q, colored=%v want %v", tt.status, got, colored, tt.colored)
			}
		})
	}
}

func TestFormatStatusWithoutColor(t *testing.T) {
	withColor(t, false)

	if got := formatStatusWithColor("FAILED"); got != "FAILED" {
		t.Fatalf("expected plain status, got %q", got)
	}
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatalf("unexpected yesNo rendering %q/%q", yesNo(true), yesNo(false))
	}
}
