package handshake

import (
	"crypto"
	"crypto/ecdh"
	"crypto/x509"
	"io"
)

// RecordLayer is the external collaborator named in §6: this engine
// never frames, MACs, encrypts or fragments records itself. It reads
// and writes whole handshake messages (the header/length bookkeeping
// for ChangeCipherSpec and alerts lives here too).
type RecordLayer interface {
	// ReadHandshake blocks for exactly one inbound handshake message and
	// returns its raw bytes including the 4-byte handshake header
	// (type, 3-byte length). A retryable transport error is forwarded
	// unchanged (§5 "Suspension points").
	ReadHandshake() ([]byte, error)
	// ReadChangeCipherSpec blocks for a ChangeCipherSpec record.
	ReadChangeCipherSpec() error
	// WriteHandshake writes one already-serialized handshake message.
	WriteHandshake(msg []byte) error
	// WriteChangeCipherSpec emits a ChangeCipherSpec record.
	WriteChangeCipherSpec() error
	// SendAlert sends a single alert record. Level/description follow
	// RFC 5246 §7.2.
	SendAlert(level AlertLevel, desc AlertDescription) error
	// Flush pushes any buffered output (mirrors §4.7's FLUSH_BUFFERS
	// state for flight-based record coalescing).
	Flush() error
}

// SendFatal is the `send_fatal_handshake_failure` contract (§6):
// sending a fatal alert never itself returns an error the caller should
// propagate as the handshake's outcome — the original taxonomy error is
// what gets returned; a failed alert send is discarded, since the
// connection is being torn down either way.
func SendFatal(rl RecordLayer, desc AlertDescription) {
	_ = rl.SendAlert(AlertLevelFatal, desc)
}

// RNG is `f_rng` (§6): a cryptographically secure byte source. Callers
// typically pass crypto/rand.Reader.
type RNG interface {
	io.Reader
}

// RSAPrivateKey is the subset of `rsa_sign`/`rsa_decrypt` (§6) this
// engine needs from a server's RSA identity.
type RSAPrivateKey interface {
	// Decrypt performs raw PKCS#1 v1.5 decryption (no length/content
	// validation — §4.5 keeps the anomaly handling in the engine so it
	// can be laundered into a random premaster uniformly).
	Decrypt(ciphertext []byte) ([]byte, error)
	// Sign produces a PKCS#1 v1.5 signature. hash == crypto.Hash(0)
	// requests the unhashed MD5||SHA1 TLS-<=1.1 signature format
	// (§4.5).
	Sign(rand io.Reader, digest []byte, hash crypto.Hash) ([]byte, error)
	Size() int // modulus size in bytes
	Public() *x509.Certificate
}

// ECDHProvider is the `ecdh_make_params`/`ecdh_calc_secret` contract
// (§6) for a given named curve.
type ECDHProvider interface {
	Curve(curve NamedCurve) (ecdh.Curve, bool)
}

// SNIResolver is `f_sni` (§6): may swap in a certificate/key pair keyed
// by the requested hostname. Returning a non-nil error rejects the
// handshake with `UNRECOGNIZED_NAME` (§4.2).
type SNIResolver interface {
	Resolve(name string) (RSAPrivateKey, error)
}

// SessionCache is `f_get_cache`/cache store (§6).
type SessionCache interface {
	Lookup(id []byte) (*Session, bool)
	Store(s *Session)
}

// PSKStore resolves a PSK identity to its key (§4.5 PSK/DHE_PSK). A
// constant-time-friendly store should make Lookup take the same time
// whether or not identity is known (§9 "Constant-time obligations"); the
// engine does no identity comparison of its own, and an unknown identity
// fails the ClientKeyExchange with ErrBadClientKeyExchange.
type PSKStore interface {
	Lookup(identity []byte) (key []byte, ok bool)
}
