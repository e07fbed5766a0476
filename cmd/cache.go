package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/netdiag/internal/application"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		if err := services.Cache.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s cache cleared (%s)\n", colorSuccess("✓"), cliConfig.Cache.Backend)
		return nil
	},
}

var cacheForgetCmd = &cobra.Command{
	Use:   "forget <domain>",
	Short: "Remove the cached registration data of one domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := validate.Domain(args[0])
		if err != nil {
			return err
		}
		services, err := getAppContext(cmd).Container()
		if err != nil {
			return err
		}
		for _, kind := range []string{"registration", "whois"} {
			if err := services.Cache.Delete(cmd.Context(), application.CacheKey(kind, domain)); err != nil {
				return fmt.Errorf("failed to delete cache entry: %w", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s forgot %s\n", colorSuccess("✓"), domain)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheForgetCmd)
}
