package handshake

import (
	"crypto"
	"crypto/ecdh"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"hash"
	"io"
	"math/big"

	"github.com/annetutil/tlsengine/internal/wire"
)

// WriteServerKeyExchange implements C6's ServerKeyExchange serializer.
// It returns (nil, nil) when the negotiated suite skips the message
// (RSA, PSK — P8's idempotent-skip case), which the state driver turns
// into a bare Advance().
func WriteServerKeyExchange(ctx *Context, cfg *Config) ([]byte, error) {
	switch ctx.Suite.KeyExchange {
	case KeyExchangeDHERSA, KeyExchangeECDHERSA, KeyExchangeDHEPSK:
	default:
		return nil, nil
	}
	if ctx.RSAKey(cfg) == nil && (ctx.Suite.KeyExchange == KeyExchangeDHERSA || ctx.Suite.KeyExchange == KeyExchangeECDHERSA) {
		return nil, ErrPrivateKeyRequired
	}

	b := wire.NewBuilder()
	var params []byte

	if ctx.Suite.KeyExchange == KeyExchangeDHEPSK {
		// TODO: support identity hints; always empty for now.
		b.AddU16(0)
	}

	switch ctx.Suite.KeyExchange {
	case KeyExchangeDHERSA, KeyExchangeDHEPSK:
		dhm, err := newServerDH(cfg.DHParams, cfg.rand())
		if err != nil {
			return nil, fmt.Errorf("handshake: generating DH params: %w", err)
		}
		ctx.DHM = dhm
		pb := wire.NewBuilder()
		pb.AddVec16(dhm.Params.P.Bytes())
		pb.AddVec16(dhm.Params.G.Bytes())
		pb.AddVec16(dhm.Y.Bytes())
		params, err = pb.Bytes()
		if err != nil {
			return nil, err
		}
		b.AddBytes(params)

	case KeyExchangeECDHERSA:
		curve, ok := resolveECDHCurve(ctx.ECCurve)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported curve %v", ErrFeatureUnavailable, ctx.ECCurve)
		}
		priv, err := curve.GenerateKey(cfg.rand())
		if err != nil {
			return nil, fmt.Errorf("handshake: generating ECDH key: %w", err)
		}
		ctx.ECDH = &EphemeralECDH{Curve: ctx.ECCurve, ecdhCurve: curve, PrivateKey: priv}

		pb := wire.NewBuilder()
		pb.AddU8(3) // curve_type = named_curve
		pb.AddU16(uint16(ctx.ECCurve))
		pb.AddVec8(priv.PublicKey().Bytes())
		params, err = pb.Bytes()
		if err != nil {
			return nil, err
		}
		b.AddBytes(params)
	}

	// For *_RSA variants only, sign client_random||server_random||params.
	if ctx.Suite.KeyExchange == KeyExchangeDHERSA || ctx.Suite.KeyExchange == KeyExchangeECDHERSA {
		signed := append(append(ctx.ClientRandom[:0:0], ctx.ClientRandom[:]...), ctx.ServerRandom[:]...)
		signed = append(signed, params...)

		var digest []byte
		var cryptoHash crypto.Hash

		if ctx.NegotiatedMinor != MinorTLS12 {
			// Open Question (i): both non-TLS-1.2 branches must use a
			// 36-byte MD5||SHA1 digest explicitly.
			md5sum := md5.Sum(signed)
			sha1sum := sha1.Sum(signed)
			digest = append(append([]byte{}, md5sum[:]...), sha1sum[:]...)
			cryptoHash = crypto.Hash(0) // unhashed-sign
		} else {
			b.AddU8(byte(ctx.SigAlg))
			b.AddU8(byte(SigRSA))
			digest, cryptoHash = hashForSigAlg(ctx.SigAlg, signed)
		}

		sig, err := ctx.RSAKey(cfg).Sign(cfg.rand(), digest, cryptoHash)
		if err != nil {
			return nil, fmt.Errorf("handshake: signing server key exchange: %w", err)
		}
		b.AddVec16(sig)
	}

	body, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return wrapHandshake(HandshakeServerKeyExchange, body), nil
}

// hashForSigAlg hashes data with the algorithm named by alg and returns
// both the digest and the crypto.Hash identifier rsa.SignPKCS1v15 needs.
func hashForSigAlg(alg HashAlgorithm, data []byte) ([]byte, crypto.Hash) {
	var h hash.Hash
	var ch crypto.Hash
	switch alg {
	case HashMD5:
		h, ch = md5.New(), crypto.MD5
	case HashSHA1:
		h, ch = sha1.New(), crypto.SHA1
	case HashSHA224:
		h, ch = sha256.New224(), crypto.SHA224
	case HashSHA384:
		h, ch = sha512.New384(), crypto.SHA384
	case HashSHA512:
		h, ch = sha512.New(), crypto.SHA512
	default:
		h, ch = sha256.New(), crypto.SHA256
	}
	h.Write(data)
	return h.Sum(nil), ch
}

// newServerDH instantiates an ephemeral DH keypair from the server's
// static group (dhm_make_params).
func newServerDH(params *DHParams, rnd io.Reader) (*EphemeralDH, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: no DH parameters configured", ErrFeatureUnavailable)
	}
	byteLen := (params.P.BitLen() + 7) / 8
	xBytes := make([]byte, byteLen)
	if _, err := io.ReadFull(rnd, xBytes); err != nil {
		return nil, err
	}
	x := new(big.Int).SetBytes(xBytes)
	x.Mod(x, params.P)
	y := new(big.Int).Exp(params.G, x, params.P)
	return &EphemeralDH{Params: *params, X: x, Y: y, Len: byteLen}, nil
}

// resolveECDHCurve maps a NamedCurve id to a crypto/ecdh.Curve.
func resolveECDHCurve(c NamedCurve) (ecdh.Curve, bool) {
	switch c {
	case CurveSecp256r1:
		return ecdh.P256(), true
	case CurveSecp384r1:
		return ecdh.P384(), true
	case CurveSecp521r1:
		return ecdh.P521(), true
	default:
		return nil, false
	}
}

// WriteCertificateRequest implements C6's CertificateRequest
// serializer. It returns nil when skipped (PSK, DHE_PSK, or
// VERIFY_NONE).
func WriteCertificateRequest(ctx *Context, cfg *Config) []byte {
	if ctx.Suite.KeyExchange == KeyExchangePSK || ctx.Suite.KeyExchange == KeyExchangeDHEPSK {
		return nil
	}
	if cfg.ClientAuth == VerifyNone {
		return nil
	}

	b := wire.NewBuilder()
	b.AddU8(1) // cert_type_count=1 || CERT_TYPE_RSA_SIGN below
	b.AddU8(1) // CERT_TYPE_RSA_SIGN

	if ctx.NegotiatedMinor == MinorTLS12 {
		b.AddU16(2)
		b.AddU8(byte(ctx.VerifySigAlg))
		b.AddU8(byte(SigRSA))
	}

	b.Vec16Func(func(dns *wire.Builder) {
		total := 0
		for _, dn := range cfg.CAs {
			if total > 4096 {
				break
			}
			dns.AddVec16(dn)
			total += 2 + len(dn)
		}
	})

	body, err := b.Bytes()
	if err != nil {
		return nil
	}
	return wrapHandshake(HandshakeCertificateRequest, body)
}

// ParseClientKeyExchange implements C6's ClientKeyExchange parser,
// dispatching on ctx.Suite.KeyExchange. body is the full message
// including its 4-byte handshake header.
func ParseClientKeyExchange(body []byte, ctx *Context, cfg *Config) error {
	switch ctx.Suite.KeyExchange {
	case KeyExchangeDHERSA:
		p, err := readClientDHPublic(body, 4, ctx)
		if err != nil {
			return err
		}
		return dheComputeSecret(p, ctx)

	case KeyExchangeECDHERSA:
		return parseClientECDHPublic(body, ctx)

	case KeyExchangePSK:
		identity, _, err := readClientPSKIdentity(body, 4, cfg)
		if err != nil {
			return err
		}
		return assemblePSKPremaster(identity, cfg, ctx)

	case KeyExchangeDHEPSK:
		identity, consumed, err := readClientPSKIdentity(body, 4, cfg)
		if err != nil {
			return err
		}
		p, err := readClientDHPublic(body, 4+consumed, ctx)
		if err != nil {
			return err
		}
		return assembleDHEPSKPremaster(identity, p, cfg, ctx)

	case KeyExchangeRSA:
		return parseEncryptedPremaster(body, ctx, cfg)

	default:
		return ErrFeatureUnavailable
	}
}

// readClientDHPublic implements ssl_parse_client_dh_public: len(2) ||
// g^y, 1 <= len <= dhm_ctx.len.
func readClientDHPublic(body []byte, offset int, ctx *Context) (*big.Int, error) {
	if ctx.DHM == nil {
		return nil, fmt.Errorf("%w: no DH context", ErrBadClientKeyExchange)
	}
	if offset > len(body) {
		return nil, fmt.Errorf("%w: truncated DH public", ErrBadClientKeyExchange)
	}
	r := wire.NewReader(body[offset:])
	gy, err := r.Vec16()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated DH public", ErrBadClientKeyExchange)
	}
	if len(gy) < 1 || len(gy) > ctx.DHM.Len {
		return nil, fmt.Errorf("%w: DH public length %d out of range", ErrBadClientKeyExchange, len(gy))
	}
	return new(big.Int).SetBytes(gy), nil
}

func dheComputeSecret(gy *big.Int, ctx *Context) error {
	if gy.Sign() <= 0 || gy.Cmp(ctx.DHM.Params.P) >= 0 {
		return fmt.Errorf("%w: DH public value out of range", ErrBadClientKeyExchangeRP)
	}
	secret := new(big.Int).Exp(gy, ctx.DHM.X, ctx.DHM.Params.P)
	sb := secret.Bytes()
	if len(sb) > ctx.DHM.Len {
		return fmt.Errorf("%w: DH secret overflow", ErrBadClientKeyExchangeCS)
	}
	// Left-pad to the group's byte length, matching dhm_calc_secret's
	// fixed-width output.
	out := make([]byte, ctx.DHM.Len)
	copy(out[ctx.DHM.Len-len(sb):], sb)
	ctx.PMSLen = copy(ctx.Premaster[:], out)
	return nil
}

// parseClientECDHPublic implements ssl_parse_client_ecdh_public: a
// 1-byte point length + ECPoint, bounded by [1, 2*|P|+2], and the
// message must end exactly at 4+len.
func parseClientECDHPublic(body []byte, ctx *Context) error {
	if ctx.ECDH == nil {
		return fmt.Errorf("%w: no ECDH context", ErrBadClientKeyExchange)
	}
	if len(body) < 5 {
		return fmt.Errorf("%w: truncated ECDH client key exchange", ErrBadClientKeyExchange)
	}
	n := int(body[4])
	maxLen := ecdhMaxPointLen(ctx.ECDH.Curve)
	if n < 1 || n > maxLen || 5+n != len(body) {
		return fmt.Errorf("%w: ECDH point length %d invalid", ErrBadClientKeyExchange, n)
	}
	point := body[5 : 5+n]

	pub, err := ctx.ECDH.ecdhCurve.NewPublicKey(point)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadClientKeyExchangeRP, err)
	}
	shared, err := ctx.ECDH.PrivateKey.ECDH(pub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadClientKeyExchangeCS, err)
	}
	ctx.PMSLen = copy(ctx.Premaster[:], shared)
	return nil
}

func ecdhMaxPointLen(c NamedCurve) int {
	switch c {
	case CurveSecp256r1:
		return 2*32 + 2
	case CurveSecp384r1:
		return 2*48 + 2
	case CurveSecp521r1:
		return 2*66 + 2
	default:
		return 0
	}
}

// readClientPSKIdentity implements ssl_parse_client_psk_identity: len(2)
// || name, byte-exact match required against the configured identity.
// The match is decided by cfg.PSK.Lookup, which is called for every
// non-empty identity; how long that takes for a known versus an unknown
// identity is up to the PSKStore (§9 "Constant-time obligations").
func readClientPSKIdentity(body []byte, offset int, cfg *Config) (identity []byte, consumed int, err error) {
	if cfg.PSK == nil {
		return nil, 0, ErrPrivateKeyRequired
	}
	if offset > len(body) {
		return nil, 0, fmt.Errorf("%w: truncated PSK identity", ErrBadClientKeyExchange)
	}
	r := wire.NewReader(body[offset:])
	name, rerr := r.Vec16()
	if rerr != nil {
		return nil, 0, fmt.Errorf("%w: truncated PSK identity", ErrBadClientKeyExchange)
	}
	if len(name) < 1 {
		return nil, 0, fmt.Errorf("%w: empty PSK identity", ErrBadClientKeyExchange)
	}
	if _, ok := cfg.PSK.Lookup(name); !ok {
		// Returns the generic taxonomy code (§4.5: "distinct code not
		// required") rather than a dedicated unknown-identity error.
		return nil, 0, fmt.Errorf("%w: unknown PSK identity", ErrBadClientKeyExchange)
	}
	return name, 2 + len(name), nil
}

func assemblePSKPremaster(identity []byte, cfg *Config, ctx *Context) error {
	key, ok := cfg.PSK.Lookup(identity)
	if !ok {
		return fmt.Errorf("%w: unknown PSK identity", ErrBadClientKeyExchange)
	}
	b := wire.NewBuilder()
	b.AddVec16(make([]byte, len(key)))
	b.AddVec16(key)
	pm, err := b.Bytes()
	if err != nil {
		return err
	}
	ctx.PMSLen = copy(ctx.Premaster[:], pm)
	return nil
}

func assembleDHEPSKPremaster(identity []byte, gy *big.Int, cfg *Config, ctx *Context) error {
	key, ok := cfg.PSK.Lookup(identity)
	if !ok {
		return fmt.Errorf("%w: unknown PSK identity", ErrBadClientKeyExchange)
	}
	if gy.Sign() <= 0 || gy.Cmp(ctx.DHM.Params.P) >= 0 {
		return fmt.Errorf("%w: DH public value out of range", ErrBadClientKeyExchangeRP)
	}
	secret := new(big.Int).Exp(gy, ctx.DHM.X, ctx.DHM.Params.P)
	sb := secret.Bytes()
	dh := make([]byte, ctx.DHM.Len)
	copy(dh[ctx.DHM.Len-len(sb):], sb)

	b := wire.NewBuilder()
	b.AddVec16(dh)
	b.AddVec16(key)
	pm, err := b.Bytes()
	if err != nil {
		return err
	}
	ctx.PMSLen = copy(ctx.Premaster[:], pm)
	return nil
}

// parseEncryptedPremaster implements ssl_parse_encrypted_pms_secret and
// the Bleichenbacher defence (§4.5, P5). A length prefix that does not
// equal the modulus size, or a message of the wrong total length, is
// returned as ErrBadClientKeyExchange. Every anomaly after that —
// decryption failure, wrong decrypted length, wrong major or minor
// version byte — is laundered into 48 fresh random bytes rather than
// returned as an error. The RNG runs on every path; the version bytes
// are compared only when decryption produced exactly 48 bytes.
func parseEncryptedPremaster(body []byte, ctx *Context, cfg *Config) error {
	rsaKey := ctx.RSAKey(cfg)
	if rsaKey == nil {
		return ErrPrivateKeyRequired
	}

	modLen := rsaKey.Size()
	i := 4
	if ctx.NegotiatedMinor != MinorSSL30 {
		if len(body) < 6 {
			return fmt.Errorf("%w: truncated encrypted premaster length", ErrBadClientKeyExchange)
		}
		declared := int(body[4])<<8 | int(body[5])
		if declared != modLen {
			return fmt.Errorf("%w: declared premaster length mismatch", ErrBadClientKeyExchange)
		}
		i += 2
	}
	if len(body) != i+modLen {
		return fmt.Errorf("%w: handshake length mismatch", ErrBadClientKeyExchange)
	}

	ctx.PMSLen = 48
	decrypted, decErr := rsaKey.Decrypt(body[i : i+modLen])

	anomaly := decErr != nil || len(decrypted) != 48
	if !anomaly {
		anomaly = subtle.ConstantTimeByteEq(decrypted[0], ctx.MaxMajor) == 0 ||
			subtle.ConstantTimeByteEq(decrypted[1], ctx.MaxMinor) == 0
	}

	// The RNG always runs, whether or not an anomaly occurred, so that
	// the RNG call itself does not depend on which of the four failure
	// conditions (or none) applied.
	randomPMS := make([]byte, 48)
	_, rngErr := cfg.rand().Read(randomPMS)
	if rngErr != nil {
		return rngErr
	}

	if anomaly {
		copy(ctx.Premaster[:48], randomPMS)
	} else {
		copy(ctx.Premaster[:48], decrypted)
	}
	return nil
}

// VerifySigAlgPrefix validates the 2-byte (hash, SIG_RSA) prefix a TLS
// 1.2 CertificateVerify must carry, matching ctx.VerifySigAlg exactly.
func VerifySigAlgPrefix(hashID, sigID byte, ctx *Context) error {
	if HashAlgorithm(hashID) != ctx.VerifySigAlg || SignatureAlgorithm(sigID) != SigRSA {
		return fmt.Errorf("%w: signature_algorithm mismatch in certificate verify", ErrBadCertificateVerify)
	}
	return nil
}

// MasterSecretDeriver is the external PRF seam: the engine calls into
// it uniformly after every premaster assembly branch, including the
// RSA anomaly path, so that key derivation runs exactly once per
// ClientKeyExchange regardless of which branch produced the premaster.
type MasterSecretDeriver interface {
	DeriveKeys(premaster []byte, clientRandom, serverRandom [32]byte, version byte, suite *CipherSuiteInfo) (masterSecret []byte, err error)
}

// DeriveMasterSecret invokes deriver exactly once with the current
// premaster and stores the result on ctx.Session.
func DeriveMasterSecret(ctx *Context, deriver MasterSecretDeriver) error {
	ms, err := deriver.DeriveKeys(ctx.Premaster[:ctx.PMSLen], ctx.ClientRandom, ctx.ServerRandom, ctx.NegotiatedMinor, ctx.Suite)
	if err != nil {
		return err
	}
	ctx.Session.MasterSecret = ms
	return nil
}
