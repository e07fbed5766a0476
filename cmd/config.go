package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/netdiag/internal/application"
	"github.com/khanhnv2901/netdiag/internal/cache"
	"github.com/khanhnv2901/netdiag/internal/registration"
	"github.com/khanhnv2901/netdiag/internal/shared/constants"
)

const (
	defaultDNSTimeoutSeconds   = 5
	defaultRDAPTimeoutSeconds  = 10
	defaultWHOISTimeoutSeconds = 10
	defaultHTTPTimeoutSeconds  = 10
	defaultPortTimeoutSeconds  = 2
	defaultSSLTimeoutSeconds   = 10
	defaultPingTimeoutSeconds  = 3
	defaultCacheTTLSeconds     = 300
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	DNS   DNSConfig
	RDAP  RDAPConfig
	WHOIS WHOISConfig
	Host  HostConfig
	Batch BatchConfig
	Cache CacheConfig
}

// DNSConfig groups resolver and propagation options.
type DNSConfig struct {
	TimeoutSecs   int
	MaxLocations  int
	Regions       []string
	CustomServers []string
	Nameservers   []string
}

// RDAPConfig groups RDAP options.
type RDAPConfig struct {
	BootstrapPath string
	TimeoutSecs   int
}

// WHOISConfig groups WHOIS options.
type WHOISConfig struct {
	TimeoutSecs int
	Server      string
}

// HostConfig groups host diagnostic timeouts.
type HostConfig struct {
	HTTPTimeoutSecs int
	PortTimeoutSecs int
	SSLTimeoutSecs  int
	PingTimeoutSecs int
	PingPrivileged  bool
}

// BatchConfig limits and paces batches.
type BatchConfig struct {
	MaxSize int
	Rate    float64
}

// CacheConfig selects the result cache.
type CacheConfig struct {
	Backend string
	TTLSecs int
	Dir     string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		DNS: DNSConfig{
			TimeoutSecs:  defaultDNSTimeoutSeconds,
			MaxLocations: constants.DefaultPropagationLocations,
		},
		RDAP: RDAPConfig{
			TimeoutSecs: defaultRDAPTimeoutSeconds,
		},
		WHOIS: WHOISConfig{
			TimeoutSecs: defaultWHOISTimeoutSeconds,
		},
		Host: HostConfig{
			HTTPTimeoutSecs: defaultHTTPTimeoutSeconds,
			PortTimeoutSecs: defaultPortTimeoutSeconds,
			SSLTimeoutSecs:  defaultSSLTimeoutSeconds,
			PingTimeoutSecs: defaultPingTimeoutSeconds,
		},
		Batch: BatchConfig{
			MaxSize: constants.MaxBatchSize,
		},
		Cache: CacheConfig{
			Backend: cache.BackendMemory,
			TTLSecs: defaultCacheTTLSeconds,
		},
	}
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	flags := cmd.Flags()

	if viper.IsSet("dns.timeout_secs") {
		applyIntDefault(flags, "dns-timeout", viper.GetInt("dns.timeout_secs"), func(v int) { cliConfig.DNS.TimeoutSecs = v })
	}
	if viper.IsSet("dns.max_locations") {
		applyIntDefault(flags, "max-locations", viper.GetInt("dns.max_locations"), func(v int) { cliConfig.DNS.MaxLocations = v })
	}
	if viper.IsSet("dns.regions") {
		applyStringSliceDefault(flags, "regions", viper.GetStringSlice("dns.regions"), func(v []string) { cliConfig.DNS.Regions = v })
	}
	if viper.IsSet("dns.custom_servers") {
		applyStringSliceDefault(flags, "servers", viper.GetStringSlice("dns.custom_servers"), func(v []string) { cliConfig.DNS.CustomServers = v })
	}
	if viper.IsSet("dns.nameservers") {
		applyStringSliceDefault(flags, "nameserver", viper.GetStringSlice("dns.nameservers"), func(v []string) { cliConfig.DNS.Nameservers = v })
	}

	if viper.IsSet("rdap.bootstrap_path") {
		setStringIfUnset(flags, "bootstrap", viper.GetString("rdap.bootstrap_path"), func(v string) { cliConfig.RDAP.BootstrapPath = v })
	}
	if viper.IsSet("rdap.timeout_secs") {
		applyIntDefault(flags, "rdap-timeout", viper.GetInt("rdap.timeout_secs"), func(v int) { cliConfig.RDAP.TimeoutSecs = v })
	}
	if viper.IsSet("whois.timeout_secs") {
		applyIntDefault(flags, "whois-timeout", viper.GetInt("whois.timeout_secs"), func(v int) { cliConfig.WHOIS.TimeoutSecs = v })
	}
	if viper.IsSet("whois.server") {
		setStringIfUnset(flags, "whois-server", viper.GetString("whois.server"), func(v string) { cliConfig.WHOIS.Server = v })
	}

	if viper.IsSet("host.http_timeout_secs") {
		applyIntDefault(flags, "http-timeout", viper.GetInt("host.http_timeout_secs"), func(v int) { cliConfig.Host.HTTPTimeoutSecs = v })
	}
	if viper.IsSet("host.port_timeout_secs") {
		applyIntDefault(flags, "port-timeout", viper.GetInt("host.port_timeout_secs"), func(v int) { cliConfig.Host.PortTimeoutSecs = v })
	}
	if viper.IsSet("host.ssl_timeout_secs") {
		applyIntDefault(flags, "ssl-timeout", viper.GetInt("host.ssl_timeout_secs"), func(v int) { cliConfig.Host.SSLTimeoutSecs = v })
	}
	if viper.IsSet("host.ping_timeout_secs") {
		applyIntDefault(flags, "ping-timeout", viper.GetInt("host.ping_timeout_secs"), func(v int) { cliConfig.Host.PingTimeoutSecs = v })
	}
	if viper.IsSet("host.ping_privileged") {
		applyBoolDefault(flags, "privileged", viper.GetBool("host.ping_privileged"), func(v bool) { cliConfig.Host.PingPrivileged = v })
	}

	if viper.IsSet("batch.max_size") {
		applyIntDefault(flags, "max-size", viper.GetInt("batch.max_size"), func(v int) { cliConfig.Batch.MaxSize = v })
	}
	if viper.IsSet("batch.rate") {
		applyFloatDefault(flags, "rate", viper.GetFloat64("batch.rate"), func(v float64) { cliConfig.Batch.Rate = v })
	}

	if viper.IsSet("cache.backend") {
		setStringIfUnset(flags, "cache", viper.GetString("cache.backend"), func(v string) { cliConfig.Cache.Backend = v })
	}
	if viper.IsSet("cache.ttl_secs") {
		cliConfig.Cache.TTLSecs = viper.GetInt("cache.ttl_secs")
	}
	if viper.IsSet("cache.dir") {
		cliConfig.Cache.Dir = viper.GetString("cache.dir")
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyFloatDefault(flags *pflag.FlagSet, name string, value float64, setter func(float64)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringIfUnset(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// containerConfig converts the CLI config into the analyzers' typed config.
func (c *CLIConfig) containerConfig() (application.Config, error) {
	cacheDir := c.Cache.Dir
	if cacheDir == "" && c.Cache.Backend == cache.BackendSQLite {
		dataDir, err := getDataDir()
		if err != nil {
			return application.Config{}, fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		cacheDir = filepath.Join(dataDir, "cache")
	}

	return application.Config{
		DNS: application.DNSConfig{
			Timeout:      seconds(c.DNS.TimeoutSecs),
			NameServers:  c.DNS.Nameservers,
			MaxLocations: c.DNS.MaxLocations,
		},
		Registration: registration.Config{
			BootstrapPath: c.RDAP.BootstrapPath,
			RDAPTimeout:   seconds(c.RDAP.TimeoutSecs),
			WHOISTimeout:  seconds(c.WHOIS.TimeoutSecs),
			WHOISServer:   c.WHOIS.Server,
		},
		Host: application.HostConfig{
			HTTPTimeout:    seconds(c.Host.HTTPTimeoutSecs),
			PortTimeout:    seconds(c.Host.PortTimeoutSecs),
			SSLTimeout:     seconds(c.Host.SSLTimeoutSecs),
			PingTimeout:    seconds(c.Host.PingTimeoutSecs),
			PingPrivileged: c.Host.PingPrivileged,
		},
		Batch: application.BatchConfig{
			MaxSize: c.Batch.MaxSize,
			Rate:    c.Batch.Rate,
		},
		Cache: application.CacheConfig{
			Backend: c.Cache.Backend,
			Dir:     cacheDir,
			TTL:     seconds(c.Cache.TTLSecs),
		},
	}, nil
}
