package handshake

import "errors"

// Error taxonomy (§7). Names are abstract on purpose: callers switch on
// these sentinels with errors.Is, never on message text.
var (
	ErrBadClientHello           = errors.New("handshake: bad client hello")
	ErrBadProtocolVersion       = errors.New("handshake: unsupported protocol version")
	ErrNoCipherChosen           = errors.New("handshake: no common cipher suite")
	ErrBadClientKeyExchange     = errors.New("handshake: bad client key exchange")
	ErrBadClientKeyExchangeRP   = errors.New("handshake: bad client key exchange (read public)")
	ErrBadClientKeyExchangeCS   = errors.New("handshake: bad client key exchange (calc secret)")
	ErrBadCertificateVerify     = errors.New("handshake: bad certificate verify")
	ErrPrivateKeyRequired       = errors.New("handshake: private key required for negotiated suite")
	ErrFeatureUnavailable       = errors.New("handshake: feature unavailable")
	ErrBadInputData             = errors.New("handshake: bad input data")
)

// alertFor maps a taxonomy error to the fatal alert the state driver must
// send before returning it, per §7's propagation policy. Errors with no
// entry here are returned without an alert (the record layer or caller
// is responsible, e.g. for transport-level retryable errors, which this
// function maps to no alert).
func alertFor(err error) (AlertDescription, bool) {
	switch {
	case errors.Is(err, ErrBadProtocolVersion):
		return AlertProtocolVersion, true
	case errors.Is(err, ErrNoCipherChosen):
		return AlertHandshakeFailure, true
	case errors.Is(err, ErrBadCertificateVerify):
		return AlertBadCertificate, true
	case errors.Is(err, ErrBadClientHello),
		errors.Is(err, ErrBadClientKeyExchange),
		errors.Is(err, ErrBadClientKeyExchangeRP),
		errors.Is(err, ErrBadClientKeyExchangeCS):
		return AlertHandshakeFailure, true
	default:
		return 0, false
	}
}
