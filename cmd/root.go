package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "netdiag",
	Short:         "DNS, registration and host diagnostics for domains",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()
		applyConfigDefaults(cmd)

		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		storeAppContext(cmd, &AppContext{Logger: logger, Config: cliConfig})
		logger.Debug("configuration loaded", zap.String("config", viper.ConfigFileUsed()))
		return nil
	},
}

// initConfig reads $HOME/.netdiag.yaml (or --config) and NETDIAG_* variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".netdiag")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("NETDIAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// newLogger logs warnings and above to stderr in JSON; verbose switches to a
// human-readable debug logger.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatCLIError(err))
		os.Exit(exitCode(err))
	}
}

func init() {
	cobra.OnFinalize(closeAppContext)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.netdiag.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Cache.Backend, "cache", cliConfig.Cache.Backend, "result cache backend: memory, sqlite or none")

	rootCmd.AddCommand(dnsCmd)
	rootCmd.AddCommand(registrationCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}
