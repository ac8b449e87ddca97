package handshake

import (
	"crypto/md5"
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPRF12IsDeterministicAndLengthExact(t *testing.T) {
	secret := []byte("a pretend 48-byte premaster secret padded out..")
	seed := []byte("clientrandomserverrandom")

	out1 := make([]byte, 32)
	prf12(prfHashFor(&CipherSuiteInfo{MAC: MACSHA256}), secret, labelMasterSecret, seed, out1)
	out2 := make([]byte, 32)
	prf12(prfHashFor(&CipherSuiteInfo{MAC: MACSHA256}), secret, labelMasterSecret, seed, out2)

	assert.Equal(t, out1, out2)
	assert.Len(t, out1, 32)
}

func TestPRF10XorsMD5AndSHA1Streams(t *testing.T) {
	secret := []byte("0123456789abcdef")
	seed := []byte("seed-material")

	out := make([]byte, 16)
	prf10(secret, labelClientFinished, seed, out)

	zero := make([]byte, 16)
	assert.NotEqual(t, zero, out, "prf10 output should not be all-zero for non-trivial input")

	// P_MD5 over the first half of the secret XOR P_SHA1 over the second.
	full := append(append([]byte{}, labelClientFinished...), seed...)
	md5Out := make([]byte, 16)
	sha1Out := make([]byte, 16)
	pHash(md5.New, secret[:8], full, md5Out)
	pHash(sha1.New, secret[8:], full, sha1Out)
	want := make([]byte, 16)
	for i := range want {
		want[i] = md5Out[i] ^ sha1Out[i]
	}
	assert.Equal(t, want, out)
}

func TestPrfDispatchesOnNegotiatedMinor(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef0123456789abcdef")
	seed := []byte("seed")
	suite := &CipherSuiteInfo{MAC: MACSHA256}

	tls12 := prf(MinorTLS12, suite, secret, labelMasterSecret, seed, 48)
	tls10 := prf(MinorTLS10, suite, secret, labelMasterSecret, seed, 48)

	assert.Len(t, tls12, 48)
	assert.Len(t, tls10, 48)
	assert.NotEqual(t, tls12, tls10, "TLS 1.2 and TLS 1.0 PRFs must diverge for the same input")
}

func TestPrfHashForPicksSHA384OnlyForThatMAC(t *testing.T) {
	assert.Equal(t, 48, prfHashFor(&CipherSuiteInfo{MAC: MACSHA384})().Size())
	assert.Equal(t, 32, prfHashFor(&CipherSuiteInfo{MAC: MACSHA256})().Size())
}

func TestDefaultMasterSecretDeriverProduces48Bytes(t *testing.T) {
	premaster := make([]byte, 48)
	var clientRandom, serverRandom [32]byte

	ms, err := DefaultMasterSecretDeriver.DeriveKeys(premaster, clientRandom, serverRandom, MinorTLS12, &CipherSuiteInfo{MAC: MACSHA256})
	assert.NoError(t, err)
	assert.Len(t, ms, 48)
}
