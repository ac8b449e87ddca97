package handshake

import (
	"crypto/x509"
	"fmt"

	"github.com/annetutil/tlsengine/internal/wire"
)

// WriteServerCertificate serializes the ServerCertificate message: a
// Vec24 list of Vec24 DER certificates, leaf first (§4.4). An empty
// chain still produces a valid (empty) Certificate message — some
// PSK-only deployments configure no chain at all.
func WriteServerCertificate(chain [][]byte) ([]byte, error) {
	b := wire.NewBuilder()
	for _, cert := range chain {
		b.AddU24(uint32(len(cert)))
		b.AddBytes(cert)
	}
	certs, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	outer := wire.NewBuilder()
	outer.AddU24(uint32(len(certs)))
	outer.AddBytes(certs)
	body, err := outer.Bytes()
	if err != nil {
		return nil, err
	}
	return wrapHandshake(HandshakeCertificate, body), nil
}

// ParseClientCertificate parses an inbound Certificate message during
// client authentication (§4.6). An empty chain (cert_list length 0) is
// legal under VerifyOptional and means "no certificate"; the caller
// decides whether that's acceptable.
func ParseClientCertificate(body []byte, rl RecordLayer) ([]*x509.Certificate, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("%w: truncated certificate message", ErrBadClientHello)
	}
	r := wire.NewReader(body[4:])
	listLen, err := r.U24()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated certificate list length", ErrBadClientHello)
	}
	list, err := r.Bytes(int(listLen))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated certificate list", ErrBadClientHello)
	}

	lr := wire.NewReader(list)
	var chain []*x509.Certificate
	for !lr.Empty() {
		n, err := lr.U24()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated certificate entry length", ErrBadClientHello)
		}
		der, err := lr.Bytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("%w: truncated certificate entry", ErrBadClientHello)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			SendFatal(rl, AlertBadCertificate)
			return nil, fmt.Errorf("%w: %v", ErrBadClientHello, err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}
