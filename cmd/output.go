package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints v as JSON when --json is set, otherwise calls human.
func emit(out io.Writer, v any, human func(io.Writer)) error {
	if jsonOutput {
		return printJSON(out, v)
	}
	human(out)
	return nil
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func heading(out io.Writer, format string, args ...any) {
	title := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, colorInfo(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
}

func formatDate(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return "unknown"
	}
	return t.UTC().Format("2006-01-02")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
