package checker

import (
	"crypto/tls"
	"fmt"
)

// 0x0300 has no non-deprecated constant in crypto/tls.
const versionSSL30 uint16 = 0x0300

var protocolNames = map[uint16]string{
	versionSSL30:     "SSL 3.0",
	tls.VersionTLS10: "TLS 1.0",
	tls.VersionTLS11: "TLS 1.1",
	tls.VersionTLS12: "TLS 1.2",
	tls.VersionTLS13: "TLS 1.3",
}

// Suites Go still negotiates but SSLResult marks weak: static RSA key
// exchange without forward secrecy and 3DES.
var weakExtraSuites = map[uint16]bool{
	tls.TLS_RSA_WITH_AES_128_CBC_SHA:        true,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA:        true,
	tls.TLS_RSA_WITH_AES_128_GCM_SHA256:     true,
	tls.TLS_RSA_WITH_AES_256_GCM_SHA384:     true,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:       true,
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA: true,
}

// tlsVersionString labels the negotiated protocol for SSL and HTTP results.
func tlsVersionString(version uint16) string {
	if name, ok := protocolNames[version]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", version)
}

// cipherSuiteString returns the IANA name, or 0xNNNN for suites Go does not know.
func cipherSuiteString(suite uint16) string {
	return tls.CipherSuiteName(suite)
}

func isWeakCipherSuite(suite uint16) bool {
	if weakExtraSuites[suite] {
		return true
	}
	for _, s := range tls.InsecureCipherSuites() {
		if s.ID == suite {
			return true
		}
	}
	return false
}
