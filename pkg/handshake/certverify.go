package handshake

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/annetutil/tlsengine/internal/wire"
)

// CertificateVerifySkipped reports whether §4.6's skip rule applies:
// PSK/DHE_PSK suites never ask for client auth, and a client that
// presented no certificate has nothing to sign.
func CertificateVerifySkipped(ctx *Context) bool {
	if ctx.Suite.KeyExchange == KeyExchangePSK || ctx.Suite.KeyExchange == KeyExchangeDHEPSK {
		return true
	}
	return ctx.ClientCert == nil
}

// ParseCertificateVerify implements §4.5/§4.6's CertificateVerify
// parser: a TLS 1.2 message must carry a (hash, SIG_RSA) prefix
// matching ctx.VerifySigAlg; earlier versions sign the bare 36-byte
// transcript digest. transcriptSum is the digest calc_verify produced
// for the messages strictly preceding this one.
func ParseCertificateVerify(body []byte, ctx *Context, transcriptSum []byte) error {
	r := wire.NewReader(body[4:])

	if ctx.NegotiatedMinor == MinorTLS12 {
		hashID, err := r.U8()
		if err != nil {
			return fmt.Errorf("%w: truncated signature_algorithm", ErrBadCertificateVerify)
		}
		sigID, err := r.U8()
		if err != nil {
			return fmt.Errorf("%w: truncated signature_algorithm", ErrBadCertificateVerify)
		}
		if err := VerifySigAlgPrefix(hashID, sigID, ctx); err != nil {
			return err
		}
	}

	sig, err := r.Vec16()
	if err != nil || !r.Empty() {
		return fmt.Errorf("%w: truncated signature", ErrBadCertificateVerify)
	}

	pub, ok := ctx.ClientCert.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: client certificate is not RSA", ErrBadCertificateVerify)
	}

	cryptoHash := crypto.Hash(0)
	if ctx.NegotiatedMinor == MinorTLS12 {
		cryptoHash = hashIDToCryptoHash(ctx.VerifySigAlg)
	}

	if err := rsa.VerifyPKCS1v15(pub, cryptoHash, transcriptSum, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrBadCertificateVerify, err)
	}
	return nil
}

func hashIDToCryptoHash(alg HashAlgorithm) crypto.Hash {
	switch alg {
	case HashMD5:
		return crypto.MD5
	case HashSHA1:
		return crypto.SHA1
	case HashSHA224:
		return crypto.SHA224
	case HashSHA384:
		return crypto.SHA384
	case HashSHA512:
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}

// ClientCertFromChain extracts the RSA public key the CertificateVerify
// signature must validate against, and records it on ctx (§4.6).
func ClientCertFromChain(chain []*x509.Certificate, ctx *Context) error {
	if len(chain) == 0 {
		ctx.ClientCert = nil
		return nil
	}
	leaf := chain[0]
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: client leaf certificate is not RSA", ErrBadClientHello)
	}
	ctx.ClientCert = pub
	ctx.Session.PeerCert = leaf
	return nil
}
