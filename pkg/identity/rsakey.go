// Package identity adapts a PEM-encoded RSA key pair and certificate
// chain into the minimal interfaces pkg/handshake asks its caller to
// supply (handshake.RSAPrivateKey, Config.Certificates). Loading and
// parsing X.509 material has no dedicated third-party library anywhere
// in the retrieved stack, so this stays on crypto/x509 and encoding/pem.
package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/annetutil/tlsengine/pkg/handshake"
)

// RSAKey wraps an *rsa.PrivateKey and its leaf certificate to satisfy
// handshake.RSAPrivateKey.
type RSAKey struct {
	priv *rsa.PrivateKey
	leaf *x509.Certificate
}

var _ handshake.RSAPrivateKey = (*RSAKey)(nil)

// LoadRSAKeyPair reads a PEM certificate and PEM PKCS#1/PKCS#8 private
// key from disk, returning an identity ready for Config.RSAKey and the
// DER chain ready for Config.Certificates (leaf only; callers that want
// intermediates can append to the returned chain before assigning it).
func LoadRSAKeyPair(certPath, keyPath string) (*RSAKey, [][]byte, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: read key: %w", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, nil, fmt.Errorf("identity: no PEM block in %s", certPath)
	}
	leaf, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: parse certificate: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("identity: no PEM block in %s", keyPath)
	}
	priv, err := parseRSAPrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: parse private key: %w", err)
	}

	return &RSAKey{priv: priv, leaf: leaf}, [][]byte{certBlock.Bytes}, nil
}

func parseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("identity: private key is not RSA")
	}
	return rsaKey, nil
}

// Decrypt performs raw RSA decryption and strips the PKCS#1 v1.5
// encryption padding (0x00 0x02 PS 0x00 M) before returning the message
// bytes. Malformed padding is reported as an error rather than patched
// up here: the engine's Bleichenbacher defense (§4.5) wants to see that
// failure, it just must not be able to distinguish it by timing or
// shape from a well-formed message of the wrong length.
func (k *RSAKey) Decrypt(ciphertext []byte) ([]byte, error) {
	c := new(big.Int).SetBytes(ciphertext)
	m := new(big.Int).Exp(c, k.priv.D, k.priv.N)

	out := m.Bytes()
	em := make([]byte, k.priv.Size())
	copy(em[len(em)-len(out):], out)

	return unpadPKCS1v15(em)
}

// unpadPKCS1v15 locates the 0x00 0x02 PS 0x00 M structure of RFC 8017
// §7.2.2 in em and returns M. PS must be at least 8 bytes, per the RFC's
// minimum padding length.
func unpadPKCS1v15(em []byte) ([]byte, error) {
	if len(em) < 11 || em[0] != 0x00 || em[1] != 0x02 {
		return nil, fmt.Errorf("identity: invalid PKCS#1 v1.5 padding")
	}
	sep := -1
	for i := 2; i < len(em); i++ {
		if em[i] == 0x00 {
			sep = i
			break
		}
	}
	if sep < 0 || sep-2 < 8 {
		return nil, fmt.Errorf("identity: invalid PKCS#1 v1.5 padding")
	}
	return em[sep+1:], nil
}

func (k *RSAKey) Sign(rand io.Reader, digest []byte, hash crypto.Hash) ([]byte, error) {
	return rsa.SignPKCS1v15(rand, k.priv, hash, digest)
}

func (k *RSAKey) Size() int {
	return k.priv.Size()
}

func (k *RSAKey) Public() *x509.Certificate {
	return k.leaf
}

// GenerateEphemeral creates a throwaway, self-signed RSA identity for
// local testing when no certificate/key pair is configured (the demo
// server's -generate flag).
func GenerateEphemeral(bits int) (*RSAKey, [][]byte, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, err
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return &RSAKey{priv: priv, leaf: leaf}, [][]byte{der}, nil
}
