package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/netdiag/internal/cache"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration and data directory paths",
	Long: `Display netdiag configuration information including:
  - Data and cache locations
  - Configuration file path
  - Effective timeouts and limits
  - Platform information`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config

		dataDir, err := getDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}

		cacheLocation := "in memory (per invocation)"
		switch cfg.Cache.Backend {
		case cache.BackendSQLite:
			dir := cfg.Cache.Dir
			if dir == "" {
				dir = filepath.Join(dataDir, "cache")
			}
			cacheLocation = filepath.Join(dir, cache.SQLiteFileName)
		case cache.BackendNone:
			cacheLocation = "disabled"
		}

		configFile := viper.ConfigFileUsed()
		configExists := "✗ (using defaults)"
		if configFile == "" {
			homeDir, _ := os.UserHomeDir()
			configFile = filepath.Join(homeDir, ".netdiag.yaml")
		}
		if _, err := os.Stat(configFile); err == nil {
			configExists = "✓ (exists)"
		}

		bootstrap := cfg.RDAP.BootstrapPath
		if bootstrap == "" {
			bootstrap = "built-in snapshot"
		}

		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "netdiag System Information")
		fmt.Fprintln(out, "==========================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Version:           %s\n", Version)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", dataDir)
		fmt.Fprintf(out, "  Result Cache:       %s (%s)\n", cacheLocation, cfg.Cache.Backend)
		fmt.Fprintf(out, "  RDAP Bootstrap:     %s\n", bootstrap)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configFile, configExists)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Timeouts (seconds):")
		fmt.Fprintf(out, "  DNS: %d  RDAP: %d  WHOIS: %d\n", cfg.DNS.TimeoutSecs, cfg.RDAP.TimeoutSecs, cfg.WHOIS.TimeoutSecs)
		fmt.Fprintf(out, "  HTTP: %d  Port: %d  SSL: %d  Ping: %d\n",
			cfg.Host.HTTPTimeoutSecs, cfg.Host.PortTimeoutSecs, cfg.Host.SSLTimeoutSecs, cfg.Host.PingTimeoutSecs)
		fmt.Fprintf(out, "Batch limit:          %d domains\n", cfg.Batch.MaxSize)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Environment variables use the NETDIAG_ prefix, e.g. NETDIAG_DNS_TIMEOUT_SECS=3")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
