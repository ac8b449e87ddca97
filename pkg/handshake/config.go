package handshake

import (
	"crypto/rand"
	"io"

	"go.uber.org/zap"
)

// ClientAuthPolicy controls CertificateRequest emission (§4.5/§4.6).
type ClientAuthPolicy int

const (
	VerifyNone ClientAuthPolicy = iota
	VerifyOptional
	VerifyRequired
)

// Config is the engine-wide, read-mostly configuration shared by every
// connection's HandshakeContext. Per §5, Config's callbacks
// (SessionCache, SNIResolver) must be safe for concurrent use by the
// caller; the engine itself never mutates Config.
type Config struct {
	MinMinor, MaxMinor byte

	CipherSuites []uint16 // server preference order; nil uses DefaultCipherSuiteOrder()
	Curves       []NamedCurve
	DHParams     *DHParams

	RSAKey       RSAPrivateKey
	Certificates [][]byte // DER chain for ServerCertificate, leaf first
	SNI          SNIResolver
	Sessions     SessionCache
	PSK          PSKStore
	ClientAuth   ClientAuthPolicy
	CAs          [][]byte // DER-encoded CA subject DNs for CertificateRequest

	// LegacyRenegotiation controls how peers lacking RFC 5746 support
	// are treated (§4.3's renegotiation policy table).
	LegacyRenegotiation LegacyRenegotiationPolicy

	// AllowDeflate opts into the original's DEFLATE compression
	// preference (SUPPLEMENTED FEATURES in SPEC_FULL.md); off by
	// default because compressed TLS is a known CRIME-class vector.
	AllowDeflate bool

	Rand   io.Reader
	Logger *zap.Logger
}

func (c *Config) rand() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

func (c *Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c *Config) minMinor() byte {
	if c.MinMinor == 0 && c.MaxMinor == 0 {
		return MinorSSL30
	}
	return c.MinMinor
}

func (c *Config) maxMinor() byte {
	if c.MinMinor == 0 && c.MaxMinor == 0 {
		return MinorTLS12
	}
	return c.MaxMinor
}

func (c *Config) cipherSuiteOrder() []uint16 {
	if len(c.CipherSuites) > 0 {
		return c.CipherSuites
	}
	return DefaultCipherSuiteOrder()
}

func (c *Config) curvePreferences() []NamedCurve {
	if len(c.Curves) > 0 {
		return c.Curves
	}
	return []NamedCurve{CurveSecp256r1, CurveSecp384r1, CurveSecp521r1}
}

// serverHashes reports which hash algorithms the server is willing to
// sign with for TLS 1.2 server signatures (§4.2/§4.5). SHA-1 is always
// included since it is the pre-TLS-1.2 default and a valid fallback.
func (c *Config) serverHashes() map[HashAlgorithm]bool {
	return map[HashAlgorithm]bool{
		HashSHA512: true,
		HashSHA384: true,
		HashSHA256: true,
		HashSHA1:   true,
	}
}
