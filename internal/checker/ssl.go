package checker

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ocsp"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

const defaultTLSPort = 443

// SSLResult describes the leaf certificate a host presents. Valid is false
// when the certificate is expired, not yet valid, or self-signed.
type SSLResult struct {
	Host            string    `json:"host"`
	Valid           bool      `json:"valid"`
	Issuer          string    `json:"issuer"`
	Subject         string    `json:"subject"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidTo         time.Time `json:"valid_to"`
	DaysUntilExpiry int       `json:"days_until_expiry"`

	SelfSigned         bool     `json:"self_signed"`
	Expired            bool     `json:"expired"`
	NotYetValid        bool     `json:"not_yet_valid"`
	ExpiresSoon        bool     `json:"expires_soon"`
	SerialNumber       string   `json:"serial_number,omitempty"`
	Fingerprint        string   `json:"fingerprint_sha256,omitempty"`
	SubjectAltNames    []string `json:"subject_alt_names,omitempty"`
	SignatureAlgorithm string   `json:"signature_algorithm,omitempty"`
	PublicKeyAlgorithm string   `json:"public_key_algorithm,omitempty"`
	TLSVersion         string   `json:"tls_version,omitempty"`
	CipherSuite        string   `json:"cipher_suite,omitempty"`
	WeakCipherSuite    bool     `json:"weak_cipher_suite"`
	OCSPStapled        bool     `json:"ocsp_stapled"`
	OCSPStatus         string   `json:"ocsp_status,omitempty"`
	ParseStrategy      string   `json:"parse_strategy"`

	CheckedAt time.Time `json:"checked_at"`
}

// CertificateSummary is what a CertificateParser extracts from the leaf.
type CertificateSummary struct {
	IssuerCN           string
	SubjectCN          string
	IssuerDN           string
	SubjectDN          string
	NotBefore          time.Time
	NotAfter           time.Time
	SerialNumber       string
	Fingerprint        string
	SubjectAltNames    []string
	SignatureAlgorithm string
	PublicKeyAlgorithm string
}

// ErrUnsupportedCertificate is returned by a CertificateParser that cannot
// handle the presented certificate; the next parser in the chain is tried.
var ErrUnsupportedCertificate = errors.New("unsupported certificate")

// CertificateParser extracts a summary of the leaf certificate of a TLS session.
type CertificateParser interface {
	Name() string
	Parse(state *tls.ConnectionState) (*CertificateSummary, error)
}

// X509Parser re-parses the DER bytes of the leaf through a PEM round trip.
type X509Parser struct{}

func (X509Parser) Name() string { return "x509" }

func (X509Parser) Parse(state *tls.ConnectionState) (*CertificateSummary, error) {
	if len(state.PeerCertificates) == 0 {
		return nil, errors.New("no peer certificate")
	}
	encoded := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: state.PeerCertificates[0].Raw})
	block, _ := pem.Decode(encoded)
	if block == nil {
		return nil, errors.New("certificate PEM could not be decoded")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		// Unknown curves are reported as a plain "unsupported" string.
		if errors.Is(err, x509.ErrUnsupportedAlgorithm) || strings.Contains(err.Error(), "unsupported") {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedCertificate, err)
		}
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return summarizeCertificate(cert), nil
}

// PeerParser reads the certificate the TLS stack already decoded during the handshake.
type PeerParser struct{}

func (PeerParser) Name() string { return "peer" }

func (PeerParser) Parse(state *tls.ConnectionState) (*CertificateSummary, error) {
	if len(state.PeerCertificates) == 0 {
		return nil, errors.New("no peer certificate")
	}
	return summarizeCertificate(state.PeerCertificates[0]), nil
}

func summarizeCertificate(cert *x509.Certificate) *CertificateSummary {
	sum := sha256.Sum256(cert.Raw)
	sans := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses))
	sans = append(sans, cert.DNSNames...)
	for _, ip := range cert.IPAddresses {
		sans = append(sans, ip.String())
	}
	return &CertificateSummary{
		IssuerCN:           cert.Issuer.CommonName,
		SubjectCN:          cert.Subject.CommonName,
		IssuerDN:           cert.Issuer.String(),
		SubjectDN:          cert.Subject.String(),
		NotBefore:          cert.NotBefore.UTC(),
		NotAfter:           cert.NotAfter.UTC(),
		SerialNumber:       cert.SerialNumber.Text(16),
		Fingerprint:        hex.EncodeToString(sum[:]),
		SubjectAltNames:    sans,
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
	}
}

// CheckSSL connects to the host on 443 (or the port in target) and inspects
// the presented certificate without verifying the chain.
func (h *HostChecker) CheckSSL(ctx context.Context, target string) (*SSLResult, error) {
	info := ParseTarget(target)
	if info.Scheme == "http" {
		return nil, diagerrors.New(diagerrors.CodeSSLNotAvailable, "plain HTTP does not serve a certificate")
	}
	host, err := validate.Host(info.Host)
	if err != nil {
		return nil, err
	}
	port := info.Port
	if port == 0 {
		port = defaultTLSPort
	}
	if err := validate.Port(port); err != nil {
		return nil, err
	}

	timeout := durationOr(h.SSLTimeout, constants.SSLConnectTimeout)
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true, // inspect any certificate, trusted or not
		},
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		h.logger().Debug("tls dial failed", zap.String("host", host), zap.Error(err))
		return nil, sslFailure(err, host)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	summary, strategy, err := h.parseCertificate(&state, host)
	if err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeSSLCheckFailed, fmt.Sprintf("certificate of %s could not be read", host), err)
	}

	result := evaluateCertificate(summary, time.Now().UTC())
	result.Host = host
	result.ParseStrategy = strategy
	result.TLSVersion = tlsVersionString(state.Version)
	result.CipherSuite = cipherSuiteString(state.CipherSuite)
	result.WeakCipherSuite = isWeakCipherSuite(state.CipherSuite)
	if len(state.OCSPResponse) > 0 {
		result.OCSPStapled = true
		result.OCSPStatus = ocspStatus(&state)
	}
	return result, nil
}

// parseCertificate walks the parser chain; only ErrUnsupportedCertificate
// moves on to the next parser.
func (h *HostChecker) parseCertificate(state *tls.ConnectionState, host string) (*CertificateSummary, string, error) {
	parsers := h.certParsers
	if len(parsers) == 0 {
		parsers = []CertificateParser{X509Parser{}, PeerParser{}}
	}

	var lastErr error
	for _, p := range parsers {
		summary, err := p.Parse(state)
		if err == nil {
			return summary, p.Name(), nil
		}
		if !errors.Is(err, ErrUnsupportedCertificate) {
			return nil, "", err
		}
		h.logger().Warn("certificate parser fell back",
			zap.String("host", host), zap.String("parser", p.Name()), zap.Error(err))
		lastErr = err
	}
	return nil, "", lastErr
}

// evaluateCertificate derives validity from the summary as seen at now.
func evaluateCertificate(c *CertificateSummary, now time.Time) *SSLResult {
	result := &SSLResult{
		Issuer:             displayName(c.IssuerCN, c.IssuerDN),
		Subject:            displayName(c.SubjectCN, c.SubjectDN),
		ValidFrom:          c.NotBefore,
		ValidTo:            c.NotAfter,
		DaysUntilExpiry:    int(c.NotAfter.Sub(now).Hours() / 24),
		SerialNumber:       c.SerialNumber,
		Fingerprint:        c.Fingerprint,
		SubjectAltNames:    c.SubjectAltNames,
		SignatureAlgorithm: c.SignatureAlgorithm,
		PublicKeyAlgorithm: c.PublicKeyAlgorithm,
		CheckedAt:          now,
	}

	result.Expired = now.After(c.NotAfter)
	result.NotYetValid = now.Before(c.NotBefore)
	result.SelfSigned = c.IssuerCN == c.SubjectCN
	if c.IssuerCN == "" && c.SubjectCN == "" {
		result.SelfSigned = c.IssuerDN == c.SubjectDN
	}
	result.ExpiresSoon = !result.Expired && c.NotAfter.Sub(now) < constants.TLSSoonExpiryWindow
	result.Valid = !result.Expired && !result.NotYetValid && !result.SelfSigned
	return result
}

func displayName(cn, dn string) string {
	if cn != "" {
		return cn
	}
	return dn
}

func ocspStatus(state *tls.ConnectionState) string {
	var issuer *x509.Certificate
	if len(state.PeerCertificates) > 1 {
		issuer = state.PeerCertificates[1]
	}
	resp, err := ocsp.ParseResponse(state.OCSPResponse, issuer)
	if err != nil {
		return "invalid"
	}
	switch resp.Status {
	case ocsp.Good:
		return "good"
	case ocsp.Revoked:
		return "revoked"
	default:
		return "unknown"
	}
}

func sslFailure(err error, host string) error {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return diagerrors.Wrap(diagerrors.CodeSSLNotAvailable, fmt.Sprintf("%s does not speak TLS", host), err)
	}
	// crypto/tls parses the leaf during the handshake, so a certificate
	// x509 rejects never reaches the parser chain.
	if strings.Contains(err.Error(), "failed to parse certificate") {
		return diagerrors.Wrap(diagerrors.CodeSSLCheckFailed, fmt.Sprintf("certificate presented by %s could not be parsed", host), err)
	}
	switch classifyNetError(err) {
	case failureTimeout:
		return diagerrors.Wrap(diagerrors.CodeTimeout, fmt.Sprintf("TLS connection to %s timed out", host), err)
	case failureNotFound:
		return diagerrors.Wrap(diagerrors.CodeDomainNotFound, fmt.Sprintf("%s could not be resolved", host), err)
	case failureRefused:
		return diagerrors.Wrap(diagerrors.CodeSSLNotAvailable, fmt.Sprintf("%s does not accept TLS connections", host), err)
	case failureUnreachable:
		return diagerrors.Wrap(diagerrors.CodeHostUnreachable, fmt.Sprintf("host %s is unreachable", host), err)
	default:
		return diagerrors.Wrap(diagerrors.CodeSSLCheckFailed, fmt.Sprintf("TLS handshake with %s failed", host), err)
	}
}
