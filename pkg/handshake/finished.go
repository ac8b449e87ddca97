package handshake

import (
	"crypto/subtle"
	"fmt"

	"github.com/annetutil/tlsengine/internal/wire"
)

const finishedVerifyDataLen = 12

// finishedLabel picks the PRF label RFC 5246 §7.4.9 assigns to each
// side's Finished message.
func finishedLabel(fromClient bool) []byte {
	if fromClient {
		return labelClientFinished
	}
	return labelServerFinished
}

// ComputeFinished derives this side's verify_data over the transcript
// accumulated so far (every message strictly before this Finished).
func ComputeFinished(ctx *Context, fromClient bool, transcriptSum []byte) []byte {
	verifyData := prf(ctx.NegotiatedMinor, ctx.Suite, ctx.Session.MasterSecret, finishedLabel(fromClient), transcriptSum, finishedVerifyDataLen)

	out := make([]byte, 4+finishedVerifyDataLen)
	out[0] = byte(HandshakeFinished)
	out[3] = finishedVerifyDataLen
	copy(out[4:], verifyData)

	if fromClient {
		ctx.PeerVerifyData = verifyData
	} else {
		ctx.OwnVerifyData = verifyData
	}
	ctx.VerifyDataLen = finishedVerifyDataLen
	return out
}

// VerifyFinished checks a peer's Finished message against the verify_data
// this side independently computes, in constant time (§4.7, P4's
// renegotiation binding depends on these values being exact).
func VerifyFinished(body []byte, ctx *Context, fromClient bool, transcriptSum []byte) error {
	r := wire.NewReader(body[4:])
	got, err := r.Bytes(finishedVerifyDataLen)
	if err != nil || !r.Empty() {
		return fmt.Errorf("%w: malformed finished message", ErrBadInputData)
	}

	want := prf(ctx.NegotiatedMinor, ctx.Suite, ctx.Session.MasterSecret, finishedLabel(fromClient), transcriptSum, finishedVerifyDataLen)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return fmt.Errorf("%w: finished verify_data mismatch", ErrBadInputData)
	}

	if fromClient {
		ctx.PeerVerifyData = want
	} else {
		ctx.OwnVerifyData = want
	}
	ctx.VerifyDataLen = finishedVerifyDataLen
	return nil
}
