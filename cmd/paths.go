package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
)

const dataDirEnvVar = "NETDIAG_DATA_DIR"

// getDataDir returns the appropriate data directory for the current OS
// following XDG Base Directory specification on Linux/Unix
func getDataDir() (string, error) {
	var baseDir string

	switch {
	case os.Getenv(dataDirEnvVar) != "":
		baseDir = os.Getenv(dataDirEnvVar)

	case runtime.GOOS == "windows":
		// Windows: %LOCALAPPDATA%\netdiag
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows data directory")
		}
		baseDir = filepath.Join(baseDir, "netdiag")

	case runtime.GOOS == "darwin":
		// macOS: ~/Library/Application Support/netdiag
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support", "netdiag")

	default:
		// Priority: $XDG_DATA_HOME/netdiag > ~/.local/share/netdiag
		xdgDataHome := os.Getenv("XDG_DATA_HOME")
		if xdgDataHome != "" {
			baseDir = filepath.Join(xdgDataHome, "netdiag")
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".local", "share", "netdiag")
		}
	}

	if err := os.MkdirAll(baseDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}
