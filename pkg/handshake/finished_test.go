package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFinishedTestContext() *Context {
	ctx := NewContext(InitialHandshake, SecureRenegotiationLegacy, nil, nil)
	ctx.NegotiatedMinor = MinorTLS12
	ctx.Suite = &CipherSuiteInfo{MAC: MACSHA256}
	ctx.Session.MasterSecret = make([]byte, 48)
	for i := range ctx.Session.MasterSecret {
		ctx.Session.MasterSecret[i] = byte(i)
	}
	return ctx
}

func TestComputeThenVerifyFinishedRoundTrips(t *testing.T) {
	ctx := newFinishedTestContext()
	sum := make([]byte, 32)

	msg := ComputeFinished(ctx, false, sum)
	require.Len(t, msg, 4+finishedVerifyDataLen)
	assert.Equal(t, byte(HandshakeFinished), msg[0])

	// A fresh context with the same master secret must verify the same
	// message as coming from the server.
	verifier := newFinishedTestContext()
	err := VerifyFinished(msg, verifier, false, sum)
	assert.NoError(t, err)
}

func TestVerifyFinishedRejectsTamperedVerifyData(t *testing.T) {
	ctx := newFinishedTestContext()
	sum := make([]byte, 32)

	msg := ComputeFinished(ctx, true, sum)
	msg[len(msg)-1] ^= 0xFF

	err := VerifyFinished(msg, ctx, true, sum)
	assert.ErrorIs(t, err, ErrBadInputData)
}

func TestVerifyFinishedRejectsWrongTranscriptSum(t *testing.T) {
	ctx := newFinishedTestContext()
	sum := make([]byte, 32)
	msg := ComputeFinished(ctx, true, sum)

	otherSum := make([]byte, 32)
	otherSum[0] = 1

	err := VerifyFinished(msg, ctx, true, otherSum)
	assert.Error(t, err)
}
