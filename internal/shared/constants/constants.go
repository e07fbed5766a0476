package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DNSQueryTimeout bounds a single DNS exchange, per record type or per probe location.
	DNSQueryTimeout = 5 * time.Second
	// RDAPQueryTimeout is the hard ceiling for one RDAP HTTP request.
	RDAPQueryTimeout = 10 * time.Second
	// WHOISQueryTimeout bounds a WHOIS TCP exchange, referral hop included.
	WHOISQueryTimeout = 10 * time.Second
	// HTTPCheckTimeout bounds an HTTP reachability probe including redirects.
	HTTPCheckTimeout = 10 * time.Second
	// PortConnectTimeout bounds a single TCP connect during a port scan.
	PortConnectTimeout = 2 * time.Second
	// SSLConnectTimeout bounds the TLS dial and handshake.
	SSLConnectTimeout = 10 * time.Second
	// PingTimeout bounds a single ICMP echo probe.
	PingTimeout = 3 * time.Second
)

const (
	// MinPropagationLocations is the floor of probe locations used by a propagation check.
	MinPropagationLocations = 5
	// DefaultPropagationLocations is used when no maxLocations is supplied.
	DefaultPropagationLocations = 10
	// MaxPropagationLocations is the hard upper bound regardless of configuration.
	MaxPropagationLocations = 30
	// MaxBatchSize is the default number of domains accepted by a single batch.
	MaxBatchSize = 50
	// MinPingProbes is the minimum number of logical ping probes per host.
	MinPingProbes = 3
	// MaxResponseBodyBytes caps RDAP and WHOIS payloads read into memory.
	MaxResponseBodyBytes = 1 << 20
)

// TLSSoonExpiryWindow warns operators when a certificate expires inside this window.
const TLSSoonExpiryWindow = 14 * 24 * time.Hour
