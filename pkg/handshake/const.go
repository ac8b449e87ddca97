package handshake

// Protocol version constants. Major is always 3; minor follows the
// historical SSL/TLS numbering carried over from SSLv3 (minor 0).
const (
	MajorVersion = 3

	MinorSSL30  = 0
	MinorTLS10  = 1
	MinorTLS11  = 2
	MinorTLS12  = 3
)

// ContentType values on the record layer, reproduced here only for the
// framing checks C3 performs directly against the first bytes of a
// ClientHello record; the record layer itself (read_record/write_record)
// is an external collaborator per §1.
type ContentType byte

const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
)

// HandshakeType identifies a handshake message.
type HandshakeType byte

const (
	HandshakeHelloRequest       HandshakeType = 0
	HandshakeClientHello        HandshakeType = 1
	HandshakeServerHello        HandshakeType = 2
	HandshakeCertificate        HandshakeType = 11
	HandshakeServerKeyExchange  HandshakeType = 12
	HandshakeCertificateRequest HandshakeType = 13
	HandshakeServerHelloDone    HandshakeType = 14
	HandshakeCertificateVerify  HandshakeType = 15
	HandshakeClientKeyExchange  HandshakeType = 16
	HandshakeFinished           HandshakeType = 20
)

// AlertDescription mirrors the RFC 5246 alert codes this engine can send.
type AlertDescription byte

const (
	AlertCloseNotify            AlertDescription = 0
	AlertUnexpectedMessage      AlertDescription = 10
	AlertBadRecordMAC           AlertDescription = 20
	AlertHandshakeFailure       AlertDescription = 40
	AlertBadCertificate         AlertDescription = 42
	AlertUnsupportedCertificate AlertDescription = 43
	AlertUnrecognizedName       AlertDescription = 112
	AlertProtocolVersion        AlertDescription = 70
	AlertInternalError          AlertDescription = 80
	AlertInappropriateFallback  AlertDescription = 86
	AlertNoRenegotiation        AlertDescription = 100
)

// AlertLevel values.
type AlertLevel byte

const (
	AlertLevelWarning AlertLevel = 1
	AlertLevelFatal   AlertLevel = 2
)

// Extension ids (§4.2).
const (
	ExtServerName             uint16 = 0
	ExtSupportedEllipticCurves uint16 = 10
	ExtECPointFormats         uint16 = 11
	ExtSignatureAlgorithms    uint16 = 13
	ExtRenegotiationInfo      uint16 = 0xff01
)

// ServerName entry types (SNI, §4.2).
const ServerNameHostname byte = 0

// Compression methods.
type CompressionMethod byte

const (
	CompressionNone    CompressionMethod = 0
	CompressionDeflate CompressionMethod = 1
)

// EC point formats (§4.2).
const (
	ECPointUncompressed byte = 0
	ECPointCompressed   byte = 2
)

// NamedCurve ids, the subset this engine is prepared to negotiate.
type NamedCurve uint16

const (
	CurveNone    NamedCurve = 0
	CurveSecp256r1 NamedCurve = 23
	CurveSecp384r1 NamedCurve = 24
	CurveSecp521r1 NamedCurve = 25
)

// HashAlgorithm / SignatureAlgorithm ids from the TLS 1.2
// signature_algorithms extension (§4.2, §4.5).
type HashAlgorithm byte

const (
	HashNone   HashAlgorithm = 0
	HashMD5    HashAlgorithm = 1
	HashSHA1   HashAlgorithm = 2
	HashSHA224 HashAlgorithm = 3
	HashSHA256 HashAlgorithm = 4
	HashSHA384 HashAlgorithm = 5
	HashSHA512 HashAlgorithm = 6
)

type SignatureAlgorithm byte

const (
	SigRSA   SignatureAlgorithm = 1
	SigECDSA SignatureAlgorithm = 3
)

// SCSV is the pseudo-ciphersuite signaling secure-renegotiation support
// from a client that cannot send the extension (RFC 7507/5746 TLS_EMPTY_RENEGOTIATION_INFO_SCSV).
const SCSV uint16 = 0x00FF

// TLS_FALLBACK_SCSV (RFC 7507) — not itself part of this spec's testable
// properties but scanned for consistency with the teacher's own
// ClientHello cipher-list walk; rejecting an inappropriate version
// fallback is a direct analogue of P2's version clamp.
const FallbackSCSV uint16 = 0x5600

// KeyExchange identifies the key-exchange kind carried by a ciphersuite.
type KeyExchange int

const (
	KeyExchangeRSA KeyExchange = iota
	KeyExchangeDHERSA
	KeyExchangeECDHERSA
	KeyExchangePSK
	KeyExchangeDHEPSK
)

// MACAlgorithm identifies the suite's MAC, which in turn drives
// verify_sig_alg selection (§3: SHA-256 unless MAC is SHA-384).
type MACAlgorithm int

const (
	MACSHA1 MACAlgorithm = iota
	MACSHA256
	MACSHA384
)

// CipherSuiteInfo is the metadata record named in §3
// (chosen_ciphersuite_info).
type CipherSuiteInfo struct {
	ID          uint16
	Name        string
	KeyExchange KeyExchange
	MAC         MACAlgorithm
	MinMinor    byte
	MaxMinor    byte
	IsEC        bool
}

// cipherSuiteTable is the server's ordered suite preference list (C4
// iterates it in this order). Real deployments would make this
// configurable; the engine exposes Config.CipherSuites to override the
// order or trim the set, defaulting to this table.
var cipherSuiteTable = []*CipherSuiteInfo{
	{ID: 0xC02F, Name: "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256", KeyExchange: KeyExchangeECDHERSA, MAC: MACSHA256, MinMinor: MinorTLS12, MaxMinor: MinorTLS12, IsEC: true},
	{ID: 0xC013, Name: "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA", KeyExchange: KeyExchangeECDHERSA, MAC: MACSHA1, MinMinor: MinorTLS10, MaxMinor: MinorTLS12, IsEC: true},
	{ID: 0xC027, Name: "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256", KeyExchange: KeyExchangeECDHERSA, MAC: MACSHA256, MinMinor: MinorTLS12, MaxMinor: MinorTLS12, IsEC: true},
	{ID: 0x0033, Name: "TLS_DHE_RSA_WITH_AES_128_CBC_SHA", KeyExchange: KeyExchangeDHERSA, MAC: MACSHA1, MinMinor: MinorSSL30, MaxMinor: MinorTLS12, IsEC: false},
	{ID: 0x0067, Name: "TLS_DHE_RSA_WITH_AES_128_CBC_SHA256", KeyExchange: KeyExchangeDHERSA, MAC: MACSHA256, MinMinor: MinorTLS12, MaxMinor: MinorTLS12, IsEC: false},
	{ID: 0x002F, Name: "TLS_RSA_WITH_AES_128_CBC_SHA", KeyExchange: KeyExchangeRSA, MAC: MACSHA1, MinMinor: MinorSSL30, MaxMinor: MinorTLS12, IsEC: false},
	{ID: 0x003C, Name: "TLS_RSA_WITH_AES_128_CBC_SHA256", KeyExchange: KeyExchangeRSA, MAC: MACSHA256, MinMinor: MinorTLS12, MaxMinor: MinorTLS12, IsEC: false},
	{ID: 0x008C, Name: "TLS_PSK_WITH_AES_128_CBC_SHA", KeyExchange: KeyExchangePSK, MAC: MACSHA1, MinMinor: MinorSSL30, MaxMinor: MinorTLS12, IsEC: false},
	{ID: 0x0090, Name: "TLS_DHE_PSK_WITH_AES_128_CBC_SHA", KeyExchange: KeyExchangeDHEPSK, MAC: MACSHA1, MinMinor: MinorSSL30, MaxMinor: MinorTLS12, IsEC: false},
}

// suiteByID is an index over cipherSuiteTable built once at init.
var suiteByID = func() map[uint16]*CipherSuiteInfo {
	m := make(map[uint16]*CipherSuiteInfo, len(cipherSuiteTable))
	for _, s := range cipherSuiteTable {
		m[s.ID] = s
	}
	return m
}()

// DefaultCipherSuiteOrder returns the built-in server preference order,
// a copy safe for a caller to filter or reorder into Config.CipherSuites.
func DefaultCipherSuiteOrder() []uint16 {
	out := make([]uint16, len(cipherSuiteTable))
	for i, s := range cipherSuiteTable {
		out[i] = s.ID
	}
	return out
}
