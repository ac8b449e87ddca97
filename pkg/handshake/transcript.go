package handshake

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding"
	"hash"
)

// Transcript accumulates every handshake message (ClientHello through
// the peer's Finished) the way `calc_verify` does in §6: one running
// digest per algorithm the current version/suite might need, fed with
// each message's raw bytes as it crosses the wire in either direction.
type Transcript struct {
	md5, sha1, sha2       hash.Hash
	newMD5, newSHA1, newS2 func() hash.Hash
}

// NewTranscript starts a fresh transcript. The SHA-256/384 hash is
// fixed at construction because TLS 1.2's PRF hash is a ciphersuite
// property (§3); pre-1.2 versions never consult sha2.
func NewTranscript(suite *CipherSuiteInfo) *Transcript {
	newS2 := sha256.New
	if suite != nil && suite.MAC == MACSHA384 {
		newS2 = sha512.New384
	}
	return &Transcript{
		md5: md5.New(), sha1: sha1.New(), sha2: newS2(),
		newMD5: md5.New, newSHA1: sha1.New, newS2: newS2,
	}
}

// Write feeds one handshake message's raw bytes (header included) into
// every running digest.
func (t *Transcript) Write(msg []byte) {
	t.md5.Write(msg)
	t.sha1.Write(msg)
	t.sha2.Write(msg)
}

// Sum returns the verify hash for version: the 36-byte MD5||SHA1
// concatenation pre-TLS-1.2, or the single ciphersuite-selected digest
// for TLS 1.2 (§4.5/§4.6, the CertificateVerify and Finished seams).
func (t *Transcript) Sum(minor byte) []byte {
	if minor == MinorTLS12 {
		return t.sha2.Sum(nil)
	}
	out := t.md5.Sum(nil)
	out = append(out, t.sha1.Sum(nil)...)
	return out
}

// Clone snapshots the transcript's current running state into fresh
// hash instances, so a caller can take a Sum (e.g. for
// CertificateVerify) without disturbing the hashes still accumulating
// toward Finished moments later.
func (t *Transcript) Clone() *Transcript {
	return &Transcript{
		md5:  cloneHash(t.md5, t.newMD5),
		sha1: cloneHash(t.sha1, t.newSHA1),
		sha2: cloneHash(t.sha2, t.newS2),
	}
}

// cloneHash copies h's running state into a freshly constructed hash of
// the same algorithm via the encoding.Binary(Un)Marshaler every stdlib
// hash.Hash implementation supports.
func cloneHash(h hash.Hash, newHash func() hash.Hash) hash.Hash {
	bm, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return h
	}
	state, err := bm.MarshalBinary()
	if err != nil {
		return h
	}
	fresh := newHash()
	if bu, ok := fresh.(encoding.BinaryUnmarshaler); ok {
		_ = bu.UnmarshalBinary(state)
	}
	return fresh
}
