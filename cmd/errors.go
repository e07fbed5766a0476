package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

// formatCLIError renders err for the terminal. Diagnostic errors show their
// code, status and details; anything else is printed as-is.
func formatCLIError(err error) string {
	var de *diagerrors.DiagError
	if !errors.As(err, &de) {
		return colorError("Error: ") + err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%d): %s", colorError("Error:"), de.Code, de.Status, de.Message)
	if len(de.Details) > 0 {
		keys := make([]string, 0, len(de.Details))
		for k := range de.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %v", k, de.Details[k])
		}
	}
	return b.String()
}

// exitCode maps client errors to 2 and everything else to 1.
func exitCode(err error) int {
	status := diagerrors.StatusOf(err)
	if status >= 400 && status < 500 {
		return 2
	}
	return 1
}
