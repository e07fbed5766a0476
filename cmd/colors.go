package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "open", "valid", "alive", "propagated":
		return colorSuccess(status)
	case "error", "fail", "failed", "failure", "invalid", "down":
		return colorError(status)
	case "unavailable", "filtered", "expiring", "partial":
		return colorWarn(status)
	default:
		return status
	}
}

func yesNo(b bool) string {
	if b {
		return colorSuccess("yes")
	}
	return colorError("no")
}
