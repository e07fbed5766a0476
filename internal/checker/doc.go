// Package checker implements the DNS and host analyzers.
//
// Architecture overview:
//
//   - DNSChecker resolves records through the system resolver (read from
//     resolv.conf) and compares answers from a catalog of public resolvers in
//     CheckPropagation. Every probe location yields a LocationResult, even when
//     it times out.
//   - HostChecker probes a single host: ICMP ping, an HTTP fetch, TCP connect
//     port scans and TLS certificate inspection. Certificates are parsed by an
//     ordered chain of CertificateParser strategies.
//   - ParseTarget and ExtractHost normalize user input (URLs, host:port, bare
//     hosts and IP literals) before any probe is issued.
//
// Fan-out points (propagation, port scan, ping) run one goroutine per probe
// and join on all of them; a failing probe never cancels its siblings.
package checker
