package handshake

import (
	"fmt"

	"github.com/annetutil/tlsengine/internal/wire"
)

// LegacyRenegotiationPolicy controls how a peer that never sent
// renegotiation_info/SCSV is treated (§4.3's renegotiation policy
// table; mirrors ssl_srv.c's allow_legacy_renegotiation knob).
type LegacyRenegotiationPolicy int

const (
	// LegacyRenegotiationNoRenegotiation allows a legacy (RFC-5746-blind)
	// initial handshake but refuses to renegotiate one. This is the
	// engine's default.
	LegacyRenegotiationNoRenegotiation LegacyRenegotiationPolicy = iota
	// LegacyRenegotiationBreakHandshake refuses any legacy-mode
	// handshake outright, initial or renegotiated.
	LegacyRenegotiationBreakHandshake
	// LegacyRenegotiationAllow permits legacy renegotiation (not
	// recommended; kept for parity with the original's full option set).
	LegacyRenegotiationAllow
)

// ClientHello is the parsed representation produced by C3, common to
// both the TLS and SSLv2-compat framings.
type ClientHello struct {
	Major, Minor       byte
	Random             [32]byte
	SessionID          []byte
	CipherSuites       []uint16
	CompressionMethods []byte
	HasExtensions      bool
}

const (
	minClientHelloLen = 45
	maxClientHelloLen = 512
)

// ParseClientHello dispatches between the TLS and legacy SSLv2-compat
// framings by sniffing the MSB of the first byte (§4.3), then runs the
// shared post-validation path (renegotiation policy; the SCSV scan is
// part of the TLS framing's cipher-suite step). raw is the complete inbound record exactly as the record layer
// delivered it — header bytes included — since the framing check itself
// is part of what's being validated.
func ParseClientHello(raw []byte, ctx *Context, cfg *Config, rl RecordLayer) (*ClientHello, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrBadClientHello)
	}

	var ch *ClientHello
	var err error
	if raw[0]&0x80 != 0 {
		if ctx.Renegotiation == Renegotiation {
			return nil, fmt.Errorf("%w: SSLv2 framing illegal during renegotiation", ErrBadClientHello)
		}
		ch, err = parseClientHelloV2(raw, ctx, cfg, rl)
	} else {
		ch, err = parseClientHelloTLS(raw, ctx, cfg, rl)
	}
	if err != nil {
		return nil, err
	}

	if err := applyRenegotiationPolicy(ctx, cfg, rl); err != nil {
		return nil, err
	}

	return ch, nil
}

// parseClientHelloTLS implements §4.3's "TLS framing validation order".
func parseClientHelloTLS(raw []byte, ctx *Context, cfg *Config, rl RecordLayer) (*ClientHello, error) {
	// Step 1: record header.
	if len(raw) < 5 {
		return nil, fmt.Errorf("%w: truncated record header", ErrBadClientHello)
	}
	if ContentType(raw[0]) != ContentTypeHandshake {
		return nil, fmt.Errorf("%w: not a handshake record", ErrBadClientHello)
	}
	if raw[1] != MajorVersion {
		return nil, fmt.Errorf("%w: bad major version in record header", ErrBadClientHello)
	}
	n := int(raw[3])<<8 | int(raw[4])
	if n < minClientHelloLen || n > maxClientHelloLen {
		return nil, fmt.Errorf("%w: record length %d out of range", ErrBadClientHello, n)
	}
	if len(raw) < 5+n {
		return nil, fmt.Errorf("%w: truncated record body", ErrBadClientHello)
	}
	body := raw[5 : 5+n]

	// Step 2: handshake header. The first length byte must be 0 so that
	// n == 4 + body_len (no handshake message needs more than 2^16
	// bytes for a ClientHello).
	if len(body) < 4 {
		return nil, fmt.Errorf("%w: truncated handshake header", ErrBadClientHello)
	}
	if HandshakeType(body[0]) != HandshakeClientHello {
		return nil, fmt.Errorf("%w: not a ClientHello", ErrBadClientHello)
	}
	if body[1] != 0 {
		return nil, fmt.Errorf("%w: oversized ClientHello length prefix", ErrBadClientHello)
	}
	hsLen := int(body[2])<<8 | int(body[3])
	if 4+hsLen != n {
		return nil, fmt.Errorf("%w: handshake length mismatch", ErrBadClientHello)
	}

	r := wire.NewReader(body[4:])

	major, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated version", ErrBadClientHello)
	}
	minor, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated version", ErrBadClientHello)
	}
	if major != MajorVersion {
		return nil, fmt.Errorf("%w: unsupported major version", ErrBadClientHello)
	}

	ctx.MaxMajor, ctx.MaxMinor = major, minor

	// Step 3: version negotiation.
	negMinor := minor
	if negMinor > cfg.maxMinor() {
		negMinor = cfg.maxMinor()
	}
	if negMinor < cfg.minMinor() {
		SendFatal(rl, AlertProtocolVersion)
		return nil, fmt.Errorf("%w: client offered minor %d below server minimum %d", ErrBadProtocolVersion, minor, cfg.minMinor())
	}
	ctx.NegotiatedMajor, ctx.NegotiatedMinor = MajorVersion, negMinor

	// Step 4: random.
	random, err := r.Bytes(32)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated random", ErrBadClientHello)
	}
	copy(ctx.ClientRandom[:], random)

	// Step 5: session id.
	sessLen, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated session id length", ErrBadClientHello)
	}
	if sessLen > 32 {
		return nil, fmt.Errorf("%w: session id too long", ErrBadClientHello)
	}
	sessionID, err := r.Bytes(int(sessLen))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated session id", ErrBadClientHello)
	}

	// Step 6: cipher suites.
	cipherBytes, err := r.Vec16()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated cipher suites", ErrBadClientHello)
	}
	if len(cipherBytes) < 2 || len(cipherBytes) > 256 || len(cipherBytes)%2 != 0 {
		return nil, fmt.Errorf("%w: cipher suite list length %d invalid", ErrBadClientHello, len(cipherBytes))
	}
	suites := make([]uint16, 0, len(cipherBytes)/2)
	cr := wire.NewReader(cipherBytes)
	ctx.scsvSeen = false
	for !cr.Empty() {
		id, _ := cr.U16()
		suites = append(suites, id)
		if id == SCSV {
			ctx.scsvSeen = true
		}
	}
	if ctx.scsvSeen {
		if ctx.Renegotiation == Renegotiation {
			SendFatal(rl, AlertHandshakeFailure)
			return nil, fmt.Errorf("%w: SCSV offered during renegotiation", ErrBadClientHello)
		}
		ctx.SecureRenegotiation = SecureRenegotiationSecure
	}

	// Step 7: compression.
	compBytes, err := r.Vec8()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated compression methods", ErrBadClientHello)
	}
	if len(compBytes) < 1 || len(compBytes) > 16 {
		return nil, fmt.Errorf("%w: compression list length %d invalid", ErrBadClientHello, len(compBytes))
	}

	ch := &ClientHello{
		Major: major, Minor: minor,
		Random:             ctx.ClientRandom,
		SessionID:          sessionID,
		CipherSuites:       suites,
		CompressionMethods: compBytes,
	}

	// Step 8: optional extensions.
	if !r.Empty() {
		ch.HasExtensions = true
		if err := parseExtensions(r, ctx, cfg, rl); err != nil {
			return nil, err
		}
	}
	if !r.Empty() {
		return nil, fmt.Errorf("%w: residue bytes after extensions", ErrBadClientHello)
	}

	return ch, nil
}

// parseExtensions implements §4.3's "Extension dispatch".
func parseExtensions(r *wire.Reader, ctx *Context, cfg *Config, rl RecordLayer) error {
	extBlock, err := r.Vec16()
	if err != nil {
		return fmt.Errorf("%w: truncated extensions length", ErrBadClientHello)
	}
	if len(extBlock) != 0 && len(extBlock) < 4 {
		return fmt.Errorf("%w: implausible extensions block length", ErrBadClientHello)
	}

	er := wire.NewReader(extBlock)
	for !er.Empty() {
		if er.Len() < 4 {
			return fmt.Errorf("%w: residue in extension block", ErrBadClientHello)
		}
		id, err := er.U16()
		if err != nil {
			return fmt.Errorf("%w: truncated extension id", ErrBadClientHello)
		}
		payload, err := er.Vec16()
		if err != nil {
			return fmt.Errorf("%w: truncated extension payload", ErrBadClientHello)
		}

		switch id {
		case ExtServerName:
			if err := parseSNI(payload, ctx, rl, cfg.SNI); err != nil {
				return err
			}
		case ExtRenegotiationInfo:
			if err := parseRenegotiationInfo(payload, ctx, rl); err != nil {
				return err
			}
		case ExtSignatureAlgorithms:
			if ctx.NegotiatedMinor == MinorTLS12 {
				if err := parseSignatureAlgorithms(payload, cfg.serverHashes(), ctx); err != nil {
					return err
				}
			}
		case ExtSupportedEllipticCurves:
			if err := parseSupportedEllipticCurves(payload, cfg.curvePreferences(), ctx); err != nil {
				return err
			}
		case ExtECPointFormats:
			if err := parseECPointFormats(payload, ctx); err != nil {
				return err
			}
		default:
			// Unknown extensions are ignored (§4.3).
		}
	}

	if ctx.SigAlg == HashNone {
		ctx.SigAlg = HashSHA1
	}

	return nil
}

// applyRenegotiationPolicy implements §4.3's renegotiation policy table,
// evaluated as an ordered if/else-if chain exactly as the original does
// (first match wins, so LegacyRenegotiationBreakHandshake's blanket rule
// takes priority even during an otherwise-acceptable initial handshake).
func applyRenegotiationPolicy(ctx *Context, cfg *Config, rl RecordLayer) error {
	policy := cfg.legacyRenegotiationPolicy()

	switch {
	case ctx.SecureRenegotiation == SecureRenegotiationLegacy && policy == LegacyRenegotiationBreakHandshake:
		SendFatal(rl, AlertHandshakeFailure)
		return fmt.Errorf("%w: legacy renegotiation policy breaks handshake", ErrBadClientHello)
	case ctx.Renegotiation == Renegotiation && ctx.SecureRenegotiation == SecureRenegotiationSecure && !ctx.renegotiationInfoSeen:
		SendFatal(rl, AlertHandshakeFailure)
		return fmt.Errorf("%w: renegotiation_info missing on secure renegotiation", ErrBadClientHello)
	case ctx.Renegotiation == Renegotiation && ctx.SecureRenegotiation == SecureRenegotiationLegacy && policy == LegacyRenegotiationNoRenegotiation:
		SendFatal(rl, AlertHandshakeFailure)
		return fmt.Errorf("%w: legacy renegotiation not allowed", ErrBadClientHello)
	case ctx.Renegotiation == Renegotiation && ctx.SecureRenegotiation == SecureRenegotiationLegacy && ctx.renegotiationInfoSeen:
		SendFatal(rl, AlertHandshakeFailure)
		return fmt.Errorf("%w: renegotiation_info present on legacy renegotiation", ErrBadClientHello)
	}
	return nil
}

func (c *Config) legacyRenegotiationPolicy() LegacyRenegotiationPolicy {
	return c.LegacyRenegotiation
}

// parseClientHelloV2 implements §4.3's "SSLv2-compat framing (legacy)".
func parseClientHelloV2(raw []byte, ctx *Context, cfg *Config, rl RecordLayer) (*ClientHello, error) {
	if len(raw) < 9 {
		return nil, fmt.Errorf("%w: truncated SSLv2 record", ErrBadClientHello)
	}
	lenHi := int(raw[0] &^ 0x80)
	lenLo := int(raw[1])
	n := lenHi<<8 | lenLo
	msgType := raw[2]
	major := raw[3]
	// raw[4] is the client's minor version, used for version negotiation below.

	if HandshakeType(msgType) != HandshakeClientHello {
		return nil, fmt.Errorf("%w: not an SSLv2 ClientHello", ErrBadClientHello)
	}
	if major != MajorVersion {
		return nil, fmt.Errorf("%w: bad major version in SSLv2 record", ErrBadClientHello)
	}
	if n < 17 || n > 512 {
		return nil, fmt.Errorf("%w: SSLv2 record length %d out of range", ErrBadClientHello, n)
	}
	if len(raw) < 2+n {
		return nil, fmt.Errorf("%w: truncated SSLv2 record body", ErrBadClientHello)
	}

	r := wire.NewReader(raw[5 : 2+n])
	cipherLen, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated SSLv2 cipher length", ErrBadClientHello)
	}
	sessLen, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated SSLv2 session length", ErrBadClientHello)
	}
	chalLen, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated SSLv2 challenge length", ErrBadClientHello)
	}

	if cipherLen < 3 || cipherLen%3 != 0 {
		return nil, fmt.Errorf("%w: SSLv2 cipher list length %d invalid", ErrBadClientHello, cipherLen)
	}
	if sessLen > 32 {
		return nil, fmt.Errorf("%w: SSLv2 session id too long", ErrBadClientHello)
	}
	if chalLen < 8 || chalLen > 32 {
		return nil, fmt.Errorf("%w: SSLv2 challenge length %d invalid", ErrBadClientHello, chalLen)
	}
	// n also counts msg_type, major and minor ahead of the six length bytes.
	if n-3 != 6+int(cipherLen)+int(sessLen)+int(chalLen) {
		return nil, fmt.Errorf("%w: SSLv2 record length mismatch", ErrBadClientHello)
	}

	cipherBytes, err := r.Bytes(int(cipherLen))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated SSLv2 cipher list", ErrBadClientHello)
	}
	sessionID, err := r.Bytes(int(sessLen))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated SSLv2 session id", ErrBadClientHello)
	}
	challenge, err := r.Bytes(int(chalLen))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated SSLv2 challenge", ErrBadClientHello)
	}

	// Only suites with suite_id & 0xFF0000 == 0 are eligible (no
	// TLS-only suites advertised in SSLv2 format).
	suites := make([]uint16, 0, cipherLen/3)
	for i := 0; i+3 <= len(cipherBytes); i += 3 {
		if cipherBytes[i] != 0 {
			continue
		}
		suites = append(suites, uint16(cipherBytes[i+1])<<8|uint16(cipherBytes[i+2]))
	}

	// The challenge right-aligns into the low bytes of client_random
	// (SUPPLEMENTED FEATURES: reproduces ssl_parse_client_hello_v2's
	// exact padding, high bytes left zero).
	ctx.ClientRandom = [32]byte{}
	copy(ctx.ClientRandom[32-len(challenge):], challenge)

	ctx.MaxMajor, ctx.MaxMinor = major, raw[4]

	// Version negotiation mirrors parseClientHelloTLS's step 3: clamp to
	// the server ceiling, then reject below the server floor.
	negMinor := raw[4]
	if negMinor > cfg.maxMinor() {
		negMinor = cfg.maxMinor()
	}
	if negMinor < cfg.minMinor() {
		SendFatal(rl, AlertProtocolVersion)
		return nil, fmt.Errorf("%w: client offered minor %d below server minimum %d", ErrBadProtocolVersion, raw[4], cfg.minMinor())
	}
	ctx.NegotiatedMajor = MajorVersion
	ctx.NegotiatedMinor = negMinor
	ctx.SecureRenegotiation = SecureRenegotiationLegacy

	return &ClientHello{
		Major:              major,
		Minor:              raw[4],
		Random:             ctx.ClientRandom,
		SessionID:          sessionID,
		CipherSuites:       suites,
		CompressionMethods: []byte{byte(CompressionNone)},
	}, nil
}
