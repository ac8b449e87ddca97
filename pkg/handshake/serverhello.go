package handshake

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/annetutil/tlsengine/internal/wire"
)

// ServerHello is the message C5 serializes.
type ServerHello struct {
	Major, Minor byte
	Random       [32]byte
	SessionID    []byte
	CipherSuite  uint16
	Compression  CompressionMethod
}

// CheckResumption implements the cache-hit branch of §4.4: on the
// initial handshake only, if the session cache has the client's
// offered id, the server reuses that id and resumes (P7).
func CheckResumption(ch *ClientHello, ctx *Context, cfg *Config) bool {
	if ctx.Renegotiation == Renegotiation || cfg.Sessions == nil || len(ch.SessionID) == 0 {
		return false
	}
	s, ok := cfg.Sessions.Lookup(ch.SessionID)
	if !ok {
		return false
	}
	if s.CipherSuite != ctx.Suite.ID {
		return false
	}
	ctx.Session = *s
	ctx.Resume = true
	return true
}

// WriteServerHello implements C5. It fills ctx.ServerRandom and, unless
// resuming, a fresh session id, and returns the ServerHello value plus
// the serialized message (the bytes the caller feeds to the transcript
// hash).
func WriteServerHello(ctx *Context, cfg *Config) (*ServerHello, []byte, error) {
	rnd := make([]byte, 32)
	if _, err := io.ReadFull(cfg.rand(), rnd); err != nil {
		return nil, nil, fmt.Errorf("handshake: generating server random: %w", err)
	}
	binary.BigEndian.PutUint32(rnd[:4], uint32(time.Now().Unix()))
	copy(ctx.ServerRandom[:], rnd)

	sh := &ServerHello{
		Major:       ctx.NegotiatedMajor,
		Minor:       ctx.NegotiatedMinor,
		Random:      ctx.ServerRandom,
		CipherSuite: ctx.Suite.ID,
		Compression: ctx.Session.Compression,
	}

	if ctx.Resume {
		sh.SessionID = ctx.Session.ID
	} else {
		id := make([]byte, 32)
		if _, err := io.ReadFull(cfg.rand(), id); err != nil {
			return nil, nil, fmt.Errorf("handshake: generating session id: %w", err)
		}
		sh.SessionID = id
		ctx.Session.ID = id
		ctx.Session.CipherSuite = ctx.Suite.ID
	}

	b := wire.NewBuilder()
	b.AddU8(sh.Major).AddU8(sh.Minor)
	// gmt_unix_time(4) || random(28): the first 4 bytes of the 32-byte
	// server random carry a wall-clock hint, per §4.4.
	b.AddBytes(sh.Random[:])
	b.AddVec8(sh.SessionID)
	b.AddU16(sh.CipherSuite)
	b.AddU8(byte(sh.Compression))

	if ctx.SecureRenegotiation == SecureRenegotiationSecure {
		b.Vec16Func(func(eb *wire.Builder) {
			eb.AddU16(ExtRenegotiationInfo)
			eb.Vec16Func(func(pb *wire.Builder) {
				pb.AddVec8(append(append([]byte{}, ctx.PeerVerifyData...), ctx.OwnVerifyData...))
			})
		})
	}

	body, err := b.Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("handshake: serializing server hello: %w", err)
	}

	msg := wrapHandshake(HandshakeServerHello, body)
	return sh, msg, nil
}

// wrapHandshake prepends the 4-byte handshake header (type, 3-byte
// length) shared by every outbound message.
func wrapHandshake(typ HandshakeType, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = byte(typ)
	out[1] = byte(len(body) >> 16)
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)
	return out
}
