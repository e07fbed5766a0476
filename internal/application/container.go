package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/netdiag/internal/application/batch"
	"github.com/khanhnv2901/netdiag/internal/cache"
	"github.com/khanhnv2901/netdiag/internal/checker"
	"github.com/khanhnv2901/netdiag/internal/registration"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

// Config is the typed configuration the CLI hands to NewContainer.
type Config struct {
	DNS          DNSConfig
	Registration registration.Config
	Host         HostConfig
	Batch        BatchConfig
	Cache        CacheConfig
}

// DNSConfig groups resolver and propagation settings.
type DNSConfig struct {
	Timeout      time.Duration
	NameServers  []string
	MaxLocations int
}

// HostConfig groups host diagnostic timeouts.
type HostConfig struct {
	HTTPTimeout    time.Duration
	PortTimeout    time.Duration
	SSLTimeout     time.Duration
	PingTimeout    time.Duration
	PingPrivileged bool
}

// BatchConfig limits and paces batches.
type BatchConfig struct {
	MaxSize int
	Rate    float64
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend string
	Dir     string
	TTL     time.Duration
}

// Container holds all analyzers, constructed once per process
type Container struct {
	// Analyzers
	DNS          *checker.DNSChecker
	Host         *checker.HostChecker
	Registration *registration.Resolver

	// Services
	Batch *batch.Orchestrator
	Cache cache.Store

	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewContainer creates the analyzers and the cache
func NewContainer(cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := cache.New(cfg.Cache.Backend, cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	dnsChecker := &checker.DNSChecker{
		Timeout:      cfg.DNS.Timeout,
		NameServer:   cfg.DNS.NameServers,
		MaxLocations: cfg.DNS.MaxLocations,
		Logger:       logger.Named("dns"),
	}

	hostChecker := checker.NewHostChecker(logger.Named("host"))
	if cfg.Host.HTTPTimeout > 0 {
		hostChecker.HTTPTimeout = cfg.Host.HTTPTimeout
	}
	if cfg.Host.PortTimeout > 0 {
		hostChecker.PortTimeout = cfg.Host.PortTimeout
	}
	if cfg.Host.SSLTimeout > 0 {
		hostChecker.SSLTimeout = cfg.Host.SSLTimeout
	}
	if cfg.Host.PingTimeout > 0 {
		hostChecker.PingTimeout = cfg.Host.PingTimeout
	}
	hostChecker.PingPrivileged = cfg.Host.PingPrivileged

	resolver := registration.NewResolver(cfg.Registration, logger.Named("registration"))
	if err := resolver.Initialize(); err != nil {
		_ = store.Close()
		return nil, err
	}

	c := &Container{
		DNS:          dnsChecker,
		Host:         hostChecker,
		Registration: resolver,
		Cache:        store,
		cacheTTL:     cfg.Cache.TTL,
		logger:       logger,
	}
	c.Batch = batch.NewOrchestrator(dnsChecker, &cachedRegistration{c}, hostChecker,
		batch.WithMaxSize(cfg.Batch.MaxSize),
		batch.WithRate(cfg.Batch.Rate),
		batch.WithLogger(logger.Named("batch")),
	)
	return c, nil
}

// Close releases the cache.
func (c *Container) Close() error {
	return c.Cache.Close()
}

// LookupRegistration is Resolver.LookupDomain behind the result cache.
func (c *Container) LookupRegistration(ctx context.Context, domain string) (*registration.RegistrationRecord, error) {
	return c.cachedLookup(ctx, "registration", domain, c.Registration.LookupDomain)
}

// LookupWHOIS is Resolver.LookupWHOIS behind the result cache.
func (c *Container) LookupWHOIS(ctx context.Context, domain string) (*registration.RegistrationRecord, error) {
	return c.cachedLookup(ctx, "whois", domain, c.Registration.LookupWHOIS)
}

type lookupFunc func(ctx context.Context, domain string) (*registration.RegistrationRecord, error)

func (c *Container) cachedLookup(ctx context.Context, kind, domain string, lookup lookupFunc) (*registration.RegistrationRecord, error) {
	name, err := validate.Domain(domain)
	if err != nil {
		return nil, err
	}
	key := CacheKey(kind, name)

	var record registration.RegistrationRecord
	found, err := cache.GetJSON(ctx, c.Cache, key, &record)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		c.logger.Debug("cache hit", zap.String("key", key))
		return &record, nil
	}

	result, err := lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.Cache, key, result, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// CacheKey builds the cache key for a lookup kind and a validated domain.
func CacheKey(kind, domain string) string {
	return kind + ":" + domain
}

// cachedRegistration lets batches share the registration cache.
type cachedRegistration struct {
	c *Container
}

func (r *cachedRegistration) LookupDomain(ctx context.Context, domain string) (*registration.RegistrationRecord, error) {
	return r.c.LookupRegistration(ctx, domain)
}

func (r *cachedRegistration) LookupWHOIS(ctx context.Context, domain string) (*registration.RegistrationRecord, error) {
	return r.c.LookupWHOIS(ctx, domain)
}
