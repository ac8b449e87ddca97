package handshake

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// pHash implements RFC 5246 §5's P_hash(secret, seed) expansion: an
// HMAC-driven byte stream of arbitrary length.
func pHash(newHash func() hash.Hash, secret, seed []byte, out []byte) {
	mac := hmac.New(newHash, secret)
	mac.Write(seed)
	a := mac.Sum(nil)

	for len(out) > 0 {
		mac.Reset()
		mac.Write(a)
		mac.Write(seed)
		chunk := mac.Sum(nil)

		n := copy(out, chunk)
		out = out[n:]

		mac.Reset()
		mac.Write(a)
		a = mac.Sum(nil)
	}
}

// prf10 implements the TLS 1.0/1.1 PRF (RFC 2246 §5): the secret is
// split in half and P_MD5/P_SHA1 results are XORed together.
func prf10(secret, label, seed []byte, out []byte) {
	full := append(append([]byte{}, label...), seed...)

	half := (len(secret) + 1) / 2
	s1 := secret[:half]
	s2 := secret[len(secret)-half:]

	md5Out := make([]byte, len(out))
	sha1Out := make([]byte, len(out))
	pHash(md5.New, s1, full, md5Out)
	pHash(sha1.New, s2, full, sha1Out)

	for i := range out {
		out[i] = md5Out[i] ^ sha1Out[i]
	}
}

// prf12 implements the TLS 1.2 PRF (RFC 5246 §5): a single P_hash run
// with the cipher suite's designated PRF hash (SHA-256 unless the
// suite's MAC is SHA-384, §3).
func prf12(hashFunc func() hash.Hash, secret, label, seed []byte, out []byte) {
	full := append(append([]byte{}, label...), seed...)
	pHash(hashFunc, secret, full, out)
}

// prfHashFor picks the TLS 1.2 PRF hash for suite; every pre-1.2
// ciphersuite shares the split MD5/SHA1 construction instead (prf10).
func prfHashFor(suite *CipherSuiteInfo) func() hash.Hash {
	if suite != nil && suite.MAC == MACSHA384 {
		return sha512.New384
	}
	return sha256.New
}

// labelMasterSecret and friends are the fixed ASCII labels RFC 5246 §8.1
// and §7.4.9 assign to each PRF application.
var (
	labelMasterSecret    = []byte("master secret")
	labelClientFinished  = []byte("client finished")
	labelServerFinished  = []byte("server finished")
)

// prf runs the version-appropriate PRF (§4.5/§6: derive_keys' PRF
// seam). SSLv3 is approximated with the TLS 1.0 construction — a
// deliberate simplification recorded in the design notes, since SSLv3's
// own MD5/SHA1 concatenation scheme predates RFC 2246 and this engine's
// oldest real target is effectively TLS 1.0.
func prf(minor byte, suite *CipherSuiteInfo, secret, label, seed []byte, outLen int) []byte {
	out := make([]byte, outLen)
	if minor == MinorTLS12 {
		prf12(prfHashFor(suite), secret, label, seed, out)
		return out
	}
	prf10(secret, label, seed, out)
	return out
}

// defaultMasterSecretDeriver is the engine's built-in MasterSecretDeriver,
// grounded directly on RFC 5246 §8.1's "master_secret = PRF(pre_master_secret,
// "master secret", ClientHello.random + ServerHello.random)[0..47]".
type defaultMasterSecretDeriver struct{}

// DefaultMasterSecretDeriver is the MasterSecretDeriver used when the
// caller doesn't supply one of its own.
var DefaultMasterSecretDeriver MasterSecretDeriver = defaultMasterSecretDeriver{}

func (defaultMasterSecretDeriver) DeriveKeys(premaster []byte, clientRandom, serverRandom [32]byte, version byte, suite *CipherSuiteInfo) ([]byte, error) {
	seed := append(append([]byte{}, clientRandom[:]...), serverRandom[:]...)
	return prf(version, suite, premaster, labelMasterSecret, seed, 48), nil
}
