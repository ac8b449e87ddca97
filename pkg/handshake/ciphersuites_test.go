package handshake

import (
	"crypto"
	"crypto/x509"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordLayer is a minimal handshake.RecordLayer double recording
// what was sent, grounded in the same interface-compliance idea as the
// teacher's testify assertions but exercised as a behavior double
// rather than a static type check.
type fakeRecordLayer struct {
	alerts []AlertDescription
}

func (f *fakeRecordLayer) ReadHandshake() ([]byte, error)     { return nil, nil }
func (f *fakeRecordLayer) ReadChangeCipherSpec() error        { return nil }
func (f *fakeRecordLayer) WriteHandshake(msg []byte) error    { return nil }
func (f *fakeRecordLayer) WriteChangeCipherSpec() error       { return nil }
func (f *fakeRecordLayer) Flush() error                       { return nil }
func (f *fakeRecordLayer) SendAlert(level AlertLevel, desc AlertDescription) error {
	f.alerts = append(f.alerts, desc)
	return nil
}

func TestSelectCipherSuitePrefersServerOrder(t *testing.T) {
	cfg := &Config{
		CipherSuites: []uint16{0x002F, 0xC02F}, // RSA before ECDHE-RSA
		RSAKey:       fakeRSAKey{},
	}
	ch := &ClientHello{CipherSuites: []uint16{0xC02F, 0x002F}}
	ctx := NewContext(InitialHandshake, SecureRenegotiationLegacy, nil, nil)
	ctx.NegotiatedMinor = MinorTLS12

	rl := &fakeRecordLayer{}
	require.NoError(t, SelectCipherSuite(ch, ctx, cfg, rl))
	assert.Equal(t, uint16(0x002F), ctx.Suite.ID)
	assert.Empty(t, rl.alerts)
}

func TestSelectCipherSuiteSkipsECWithoutCurve(t *testing.T) {
	cfg := &Config{CipherSuites: []uint16{0xC02F, 0x002F}, RSAKey: fakeRSAKey{}}
	ch := &ClientHello{CipherSuites: []uint16{0xC02F, 0x002F}}
	ctx := NewContext(InitialHandshake, SecureRenegotiationLegacy, nil, nil)
	ctx.NegotiatedMinor = MinorTLS12
	ctx.ECCurve = CurveNone

	require.NoError(t, SelectCipherSuite(ch, ctx, cfg, &fakeRecordLayer{}))
	assert.Equal(t, uint16(0x002F), ctx.Suite.ID, "EC suite must be skipped with no negotiated curve")
}

func TestSelectCipherSuiteNoneEligibleSendsFatalAlert(t *testing.T) {
	cfg := &Config{CipherSuites: []uint16{0x002F}} // no RSAKey configured
	ch := &ClientHello{CipherSuites: []uint16{0x002F}}
	ctx := NewContext(InitialHandshake, SecureRenegotiationLegacy, nil, nil)
	ctx.NegotiatedMinor = MinorTLS12

	rl := &fakeRecordLayer{}
	err := SelectCipherSuite(ch, ctx, cfg, rl)
	assert.ErrorIs(t, err, ErrNoCipherChosen)
	assert.Equal(t, []AlertDescription{AlertHandshakeFailure}, rl.alerts)
}

func TestSelectCompressionHonorsAllowDeflate(t *testing.T) {
	ch := &ClientHello{CompressionMethods: []byte{byte(CompressionDeflate), byte(CompressionNone)}}

	assert.Equal(t, CompressionNone, SelectCompression(ch, &Config{AllowDeflate: false}))
	assert.Equal(t, CompressionDeflate, SelectCompression(ch, &Config{AllowDeflate: true}))
}

func TestCheckFallbackSCSVRejectsInappropriateFallback(t *testing.T) {
	ch := &ClientHello{Minor: MinorTLS10, CipherSuites: []uint16{FallbackSCSV}}
	cfg := &Config{MinMinor: MinorSSL30, MaxMinor: MinorTLS12}
	rl := &fakeRecordLayer{}

	err := CheckFallbackSCSV(ch, cfg, rl)
	assert.ErrorIs(t, err, ErrBadClientHello)
	assert.Equal(t, []AlertDescription{AlertInappropriateFallback}, rl.alerts)
}

func TestCheckFallbackSCSVAllowsGenuineMaxVersion(t *testing.T) {
	ch := &ClientHello{Minor: MinorTLS12, CipherSuites: []uint16{FallbackSCSV}}
	cfg := &Config{MinMinor: MinorSSL30, MaxMinor: MinorTLS12}

	assert.NoError(t, CheckFallbackSCSV(ch, cfg, &fakeRecordLayer{}))
}

// fakeRSAKey satisfies handshake.RSAPrivateKey for eligibility checks
// that only need a non-nil identity, not real crypto.
type fakeRSAKey struct{}

func (fakeRSAKey) Decrypt(ciphertext []byte) ([]byte, error)                    { return nil, nil }
func (fakeRSAKey) Sign(rand io.Reader, digest []byte, hash crypto.Hash) ([]byte, error) {
	return nil, nil
}
func (fakeRSAKey) Size() int                      { return 256 }
func (fakeRSAKey) Public() *x509.Certificate      { return nil }
