package handshake

import (
	"crypto"
	"crypto/ecdh"
	"crypto/x509"
	"math/big"
)

// State is the ordered handshake state enum (§4.7). State advances
// monotonically; skipped messages still increment State by exactly one
// (P8).
type State int

const (
	StateHelloRequest State = iota
	StateClientHello
	StateServerHello
	StateServerCertificate
	StateServerKeyExchange
	StateCertificateRequest
	StateServerHelloDone
	StateClientCertificate
	StateClientKeyExchange
	StateCertificateVerify
	StateClientChangeCipherSpec
	StateClientFinished
	StateServerChangeCipherSpec
	StateServerFinished
	StateFlushBuffers
	StateHandshakeWrapup
	StateHandshakeOver
)

// RenegotiationMode tracks whether this HandshakeContext is running the
// connection's first handshake or a renegotiation (§3).
type RenegotiationMode int

const (
	InitialHandshake RenegotiationMode = iota
	Renegotiation
)

// SecureRenegotiationMode tracks RFC 5746 support for the peer (§3).
type SecureRenegotiationMode int

const (
	// SecureRenegotiationLegacy is the default for every fresh
	// handshake (Open Question (iii) in spec.md §9: the SSLv2 path must
	// not leave this uninitialized/stale from a prior handshake).
	SecureRenegotiationLegacy SecureRenegotiationMode = iota
	SecureRenegotiationSecure
)

// Session is the persisted/resumable state named in §3 and §6
// ("Persisted state layout").
type Session struct {
	ID            []byte // <= 32 bytes
	CipherSuite   uint16
	Compression   CompressionMethod
	PeerCert      *x509.Certificate
	MasterSecret  []byte // 48 bytes once derived
}

// DHParams is the server's static Diffie-Hellman group, supplied by the
// application (§6: "DH Parameters weren't configured" gates DHE
// eligibility in the teacher's setCipherSuite).
type DHParams struct {
	P *big.Int
	G *big.Int
}

// EphemeralDH holds one handshake's ephemeral DH key-exchange state
// (handshake.dhm_ctx in §3).
type EphemeralDH struct {
	Params DHParams
	X      *big.Int // server secret exponent
	Y      *big.Int // server public value g^x
	Len    int       // byte length of the group modulus, for bounds checks
}

// EphemeralECDH holds one handshake's ephemeral ECDH key-exchange state
// (handshake.ecdh_ctx in §3).
type EphemeralECDH struct {
	Curve      NamedCurve
	ecdhCurve  ecdh.Curve
	PrivateKey *ecdh.PrivateKey
}

// Context is the HandshakeContext of §3: the full mutable state of one
// handshake in progress, scoped to a single connection attempt and
// destroyed (zeroized) on completion or fatal error — never reused.
type Context struct {
	State State

	ClientRandom [32]byte
	ServerRandom [32]byte

	// MaxMajor/MaxMinor is the version the peer originally advertised,
	// preserved across any later downgrade so the RSA premaster's
	// anti-rollback check (§3, §4.5) can compare against it even though
	// Negotiated may be lower.
	MaxMajor, MaxMinor             byte
	NegotiatedMajor, NegotiatedMinor byte

	Session Session

	Suite *CipherSuiteInfo

	Resume bool

	SigAlg       HashAlgorithm
	VerifySigAlg HashAlgorithm

	ECCurve       NamedCurve
	ECPointFormat byte

	DHM  *EphemeralDH
	ECDH *EphemeralECDH

	// SNIKey, when non-nil, overrides Config.RSAKey for this connection
	// (set by a successful SNIResolver.Resolve in parseSNI, §4.2).
	SNIKey RSAPrivateKey

	// Premaster buffer. Capacity mirrors POLARSSL_MPI_MAX_SIZE (the
	// largest RSA modulus / DH group this engine will accept); PMSLen is
	// the effective length within it.
	Premaster [PremasterCapacity]byte
	PMSLen    int

	SecureRenegotiation SecureRenegotiationMode
	Renegotiation       RenegotiationMode

	PeerVerifyData  []byte
	OwnVerifyData   []byte
	VerifyDataLen   int

	// ClientCert, when non-nil, is the RSA public key of the leaf
	// certificate the client presented; CertificateVerify is checked
	// against it (§4.5). The certificate chain itself is not validated.
	ClientCert crypto.PublicKey

	// renegotiationInfoSeen / scsvSeen track per-ClientHello scan state used by the
	// renegotiation policy table in §4.3.
	renegotiationInfoSeen bool
	scsvSeen              bool
}

// PremasterCapacity is the spec's POLARSSL_MPI_MAX_SIZE analogue: the
// largest premaster (raw DH/ECDH shared secret, or PSK assembly) this
// engine will ever build. 512 bytes covers a 4096-bit DH group.
const PremasterCapacity = 512

// NewContext creates a fresh HandshakeContext for a new connection
// attempt. secureReneg/reneg describe the state carried over from a
// prior handshake on the same connection (zero values for a brand-new
// connection give InitialHandshake + SecureRenegotiationLegacy, matching
// Open Question (iii)).
func NewContext(reneg RenegotiationMode, secureReneg SecureRenegotiationMode, peerVerifyData, ownVerifyData []byte) *Context {
	return &Context{
		State:               StateHelloRequest,
		Renegotiation:       reneg,
		SecureRenegotiation: secureReneg,
		PeerVerifyData:      peerVerifyData,
		OwnVerifyData:       ownVerifyData,
		VerifyDataLen:       len(peerVerifyData),
	}
}

// RSAKey returns the RSA identity this handshake signs/decrypts with:
// the SNI-resolved key if one was selected, otherwise Config's static
// key (§4.2).
func (c *Context) RSAKey(cfg *Config) RSAPrivateKey {
	if c.SNIKey != nil {
		return c.SNIKey
	}
	return cfg.RSAKey
}

// Advance increments State by exactly one, the skip-rule mechanism used
// throughout C7 (P8: idempotent skip produces no record, just a state
// bump).
func (c *Context) Advance() { c.State++ }

// Zeroize scrubs every secret-bearing buffer before the context is
// discarded, per the Lifecycle and Resource Discipline sections (§3,
// §5). It must be called on every exit path, success or failure.
func (c *Context) Zeroize() {
	for i := range c.Premaster {
		c.Premaster[i] = 0
	}
	c.PMSLen = 0
	if c.Session.MasterSecret != nil {
		for i := range c.Session.MasterSecret {
			c.Session.MasterSecret[i] = 0
		}
	}
	if c.DHM != nil {
		c.DHM.X = nil
	}
	c.ECDH = nil
}
