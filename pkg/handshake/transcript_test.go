package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptSumLengthByVersion(t *testing.T) {
	suite := &CipherSuiteInfo{MAC: MACSHA256}

	tr := NewTranscript(suite)
	tr.Write([]byte("client hello bytes"))
	tr.Write([]byte("server hello bytes"))

	assert.Len(t, tr.Sum(MinorTLS11), 36, "pre-1.2 verify sum is MD5||SHA1")
	assert.Len(t, tr.Sum(MinorTLS12), 32, "TLS 1.2 verify sum is the suite's single digest (SHA-256 here)")
}

func TestTranscriptSumSHA384ForThatSuite(t *testing.T) {
	tr := NewTranscript(&CipherSuiteInfo{MAC: MACSHA384})
	tr.Write([]byte("some message"))
	assert.Len(t, tr.Sum(MinorTLS12), 48)
}

func TestTranscriptCloneDoesNotDisturbOriginal(t *testing.T) {
	tr := NewTranscript(&CipherSuiteInfo{MAC: MACSHA256})
	tr.Write([]byte("message one"))

	clone := tr.Clone()
	cloneSum := clone.Sum(MinorTLS12)

	// Feeding the original more data must not change what the clone
	// already captured, and must not retroactively change what the
	// original would have summed at the clone point.
	tr.Write([]byte("message two"))
	laterSum := tr.Sum(MinorTLS12)

	require.NotEqual(t, cloneSum, laterSum)

	// A fresh transcript fed only "message one" must match the clone's
	// sum exactly — proving Clone captured real running state, not a
	// zero-value hash.
	reference := NewTranscript(&CipherSuiteInfo{MAC: MACSHA256})
	reference.Write([]byte("message one"))
	assert.Equal(t, reference.Sum(MinorTLS12), cloneSum)
}
