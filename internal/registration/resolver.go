package registration

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

// Config holds the tunables of a Resolver.
type Config struct {
	BootstrapPath string        // Empty uses the compiled-in snapshot
	RDAPTimeout   time.Duration // Hard ceiling per RDAP request
	WHOISTimeout  time.Duration
	WHOISServer   string // Skips IANA referral when set
	HTTPClient    *http.Client
}

// Resolver answers registration lookups: RDAP first, WHOIS as fallback.
type Resolver struct {
	bootstrapPath string
	rdap          *RDAPClient
	whois         *WHOISClient
	logger        *zap.Logger

	mu      sync.Mutex
	table   *BootstrapTable
	loadErr error
}

// NewResolver builds a Resolver. The bootstrap table is loaded on Initialize
// or on first use; a failed load is remembered and never retried.
func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		bootstrapPath: cfg.BootstrapPath,
		rdap:          &RDAPClient{HTTPClient: cfg.HTTPClient, Timeout: cfg.RDAPTimeout},
		whois:         &WHOISClient{Server: cfg.WHOISServer, Timeout: cfg.WHOISTimeout},
		logger:        logger,
	}
}

// WithWHOISClient replaces the WHOIS client.
func (r *Resolver) WithWHOISClient(c *WHOISClient) *Resolver {
	r.whois = c
	return r
}

// Initialize loads the bootstrap table. Later calls return the first outcome.
func (r *Resolver) Initialize() error {
	_, err := r.bootstrap()
	return err
}

func (r *Resolver) bootstrap() (*BootstrapTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.table != nil || r.loadErr != nil {
		return r.table, r.loadErr
	}
	table, err := LoadBootstrap(r.bootstrapPath)
	if err != nil {
		r.logger.Error("rdap bootstrap failed to load", zap.String("path", r.bootstrapPath), zap.Error(err))
		r.loadErr = err
		return nil, err
	}
	r.logger.Debug("rdap bootstrap loaded", zap.String("path", r.bootstrapPath), zap.Int("tlds", table.Len()))
	r.table = table
	return table, nil
}

// ExtractTLD returns the registry suffix of domain: the last two labels when
// the bootstrap table knows them (co.uk), otherwise the last label.
func (r *Resolver) ExtractTLD(domain string) (string, error) {
	table, err := r.bootstrap()
	if err != nil {
		return "", err
	}
	return extractTLD(table, domain), nil
}

func extractTLD(table *BootstrapTable, domain string) string {
	labels := strings.Split(strings.TrimSuffix(strings.ToLower(domain), "."), ".")
	if len(labels) >= 2 {
		candidate := labels[len(labels)-2] + "." + labels[len(labels)-1]
		if table.Has(candidate) {
			return candidate
		}
	}
	return labels[len(labels)-1]
}

// FindRDAPServer returns the first RDAP base URL for tld, or "" when the
// table has no entry.
func (r *Resolver) FindRDAPServer(tld string) (string, error) {
	table, err := r.bootstrap()
	if err != nil {
		return "", err
	}
	servers := table.Servers(tld)
	if len(servers) == 0 {
		return "", nil
	}
	return servers[0], nil
}

// LookupDomain queries RDAP and silently falls back to WHOIS on any failure
// or when no RDAP server is known. The record's Source tells which answered.
func (r *Resolver) LookupDomain(ctx context.Context, domain string) (*RegistrationRecord, error) {
	name, err := validate.Domain(domain)
	if err != nil {
		return nil, err
	}
	table, err := r.bootstrap()
	if err != nil {
		return nil, err
	}
	tld := extractTLD(table, name)
	logger := r.logger.With(zap.String("domain", name), zap.String("tld", tld))

	if servers := table.Servers(tld); len(servers) > 0 {
		record, err := r.rdap.Query(ctx, servers[0], name)
		if err == nil {
			return record, nil
		}
		logger.Warn("rdap lookup failed, falling back to whois", zap.String("server", servers[0]), zap.Error(err))
	} else {
		logger.Debug("no rdap server for tld, using whois")
	}

	return r.lookupWHOIS(ctx, name, tld)
}

// LookupRDAP queries RDAP only, surfacing its errors.
func (r *Resolver) LookupRDAP(ctx context.Context, domain string) (*RegistrationRecord, error) {
	name, err := validate.Domain(domain)
	if err != nil {
		return nil, err
	}
	table, err := r.bootstrap()
	if err != nil {
		return nil, err
	}
	tld := extractTLD(table, name)
	servers := table.Servers(tld)
	if len(servers) == 0 {
		return nil, errNoRDAPServer(tld)
	}
	return r.rdap.Query(ctx, servers[0], name)
}

// LookupWHOIS queries WHOIS directly.
func (r *Resolver) LookupWHOIS(ctx context.Context, domain string) (*RegistrationRecord, error) {
	name, err := validate.Domain(domain)
	if err != nil {
		return nil, err
	}
	table, err := r.bootstrap()
	if err != nil {
		return nil, err
	}
	return r.lookupWHOIS(ctx, name, extractTLD(table, name))
}

func (r *Resolver) lookupWHOIS(ctx context.Context, name, tld string) (*RegistrationRecord, error) {
	raw, server, err := r.whois.Query(ctx, name, tld)
	if err != nil {
		r.logger.Debug("whois lookup failed", zap.String("domain", name), zap.Error(err))
		return nil, err
	}
	record := parseWHOIS(name, raw)
	record.Server = server
	return record, nil
}

func errNoRDAPServer(tld string) error {
	return diagerrors.Newf(diagerrors.CodeDomainNotFound, "no RDAP server is registered for .%s", tld).
		WithDetail("tld", tld)
}
