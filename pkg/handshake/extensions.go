package handshake

import (
	"fmt"

	"github.com/annetutil/tlsengine/internal/wire"
)

// preferredHashOrder is the strongest-first search order for
// signature_algorithms (§4.2): SHA-512, SHA-384, SHA-256, SHA-224,
// SHA-1, MD5.
var preferredHashOrder = []HashAlgorithm{
	HashSHA512, HashSHA384, HashSHA256, HashSHA224, HashSHA1, HashMD5,
}

// parseSNI implements §4.2's SNI parser. On a hostname match it invokes
// resolve; a non-nil error from resolve is a fatal UNRECOGNIZED_NAME per
// §4.2's rule, surfaced to the caller as ErrBadClientHello after sending
// the alert.
func parseSNI(payload []byte, ctx *Context, rl RecordLayer, resolver SNIResolver) error {
	r := wire.NewReader(payload)
	list, err := r.Vec16()
	if err != nil {
		return fmt.Errorf("%w: truncated server_name list", ErrBadClientHello)
	}
	if !r.Empty() {
		return fmt.Errorf("%w: trailing bytes after server_name list", ErrBadClientHello)
	}

	lr := wire.NewReader(list)
	for !lr.Empty() {
		typ, err := lr.U8()
		if err != nil {
			return fmt.Errorf("%w: truncated server_name entry", ErrBadClientHello)
		}
		name, err := lr.Vec16()
		if err != nil {
			return fmt.Errorf("%w: truncated server_name entry", ErrBadClientHello)
		}
		if typ != ServerNameHostname {
			continue
		}
		if resolver == nil {
			return nil
		}
		key, err := resolver.Resolve(string(name))
		if err != nil {
			SendFatal(rl, AlertUnrecognizedName)
			return fmt.Errorf("%w: sni callback rejected %q", ErrBadClientHello, name)
		}
		ctx.SNIKey = key
		return nil
	}
	return nil
}

// parseRenegotiationInfo implements §4.2/P4 (RFC 5746).
func parseRenegotiationInfo(payload []byte, ctx *Context, rl RecordLayer) error {
	if ctx.Renegotiation == InitialHandshake {
		if len(payload) != 1 || payload[0] != 0x00 {
			SendFatal(rl, AlertHandshakeFailure)
			return fmt.Errorf("%w: non-empty renegotiation_info on initial handshake", ErrBadClientHello)
		}
		ctx.SecureRenegotiation = SecureRenegotiationSecure
		ctx.renegotiationInfoSeen = true
		return nil
	}

	want := ctx.VerifyDataLen
	if len(payload) != 1+want || int(payload[0]) != want ||
		!bytesEqual(payload[1:], ctx.PeerVerifyData) {
		SendFatal(rl, AlertHandshakeFailure)
		return fmt.Errorf("%w: non-matching renegotiation_info", ErrBadClientHello)
	}
	ctx.renegotiationInfoSeen = true
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseSignatureAlgorithms implements §4.2 (TLS 1.2 only). No match
// leaves ctx.SigAlg at its zero value; the caller applies the SHA-1
// default.
func parseSignatureAlgorithms(payload []byte, serverHashes map[HashAlgorithm]bool, ctx *Context) error {
	r := wire.NewReader(payload)
	list, err := r.Vec16()
	if err != nil || !r.Empty() {
		return fmt.Errorf("%w: truncated signature_algorithms", ErrBadClientHello)
	}
	if len(list)%2 != 0 {
		return fmt.Errorf("%w: odd-length signature_algorithms list", ErrBadClientHello)
	}

	offered := make(map[HashAlgorithm]bool)
	for i := 0; i+1 < len(list); i += 2 {
		hash := HashAlgorithm(list[i])
		sig := SignatureAlgorithm(list[i+1])
		if sig == SigRSA {
			offered[hash] = true
		}
	}

	for _, h := range preferredHashOrder {
		if offered[h] && serverHashes[h] {
			ctx.SigAlg = h
			return nil
		}
	}
	return nil
}

// parseSupportedEllipticCurves implements §4.2: take the first id the
// client offers that the server also supports, in server order.
func parseSupportedEllipticCurves(payload []byte, serverCurves []NamedCurve, ctx *Context) error {
	r := wire.NewReader(payload)
	list, err := r.Vec16()
	if err != nil || !r.Empty() {
		return fmt.Errorf("%w: truncated supported_elliptic_curves", ErrBadClientHello)
	}
	if len(list)%2 != 0 {
		return fmt.Errorf("%w: odd-length curve list", ErrBadClientHello)
	}

	offered := make(map[NamedCurve]bool)
	lr := wire.NewReader(list)
	for !lr.Empty() {
		v, err := lr.U16()
		if err != nil {
			return fmt.Errorf("%w: truncated curve list", ErrBadClientHello)
		}
		offered[NamedCurve(v)] = true
	}

	for _, c := range serverCurves {
		if offered[c] {
			ctx.ECCurve = c
			return nil
		}
	}
	return nil
}

// parseECPointFormats implements §4.2. Open Question (ii) from spec.md
// §9: the outer length is a single byte at buf[0], so the list itself
// starts at buf[1] — NOT buf[2]. This parser reads from the correct
// offset.
func parseECPointFormats(payload []byte, ctx *Context) error {
	r := wire.NewReader(payload)
	list, err := r.Vec8()
	if err != nil || !r.Empty() {
		return fmt.Errorf("%w: truncated ec_point_formats", ErrBadClientHello)
	}
	for _, f := range list {
		if f == ECPointUncompressed || f == ECPointCompressed {
			ctx.ECPointFormat = f
			return nil
		}
	}
	return nil
}
