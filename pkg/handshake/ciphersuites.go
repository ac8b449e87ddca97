package handshake

import "fmt"

// SelectCipherSuite implements C4: server-preference intersection
// across version/curve/key-exchange constraints (P6). It iterates the
// server's preference list and, for each, scans the client's offered
// list; the first eligible match wins.
func SelectCipherSuite(ch *ClientHello, ctx *Context, cfg *Config, rl RecordLayer) error {
	clientOffered := make(map[uint16]bool, len(ch.CipherSuites))
	for _, id := range ch.CipherSuites {
		clientOffered[id] = true
	}

	for _, id := range cfg.cipherSuiteOrder() {
		if !clientOffered[id] {
			continue
		}
		info, ok := suiteByID[id]
		if !ok {
			continue
		}
		if ctx.NegotiatedMinor < info.MinMinor || ctx.NegotiatedMinor > info.MaxMinor {
			continue
		}
		if info.IsEC && ctx.ECCurve == CurveNone {
			continue
		}
		if (info.KeyExchange == KeyExchangeDHERSA || info.KeyExchange == KeyExchangeDHEPSK) && cfg.DHParams == nil {
			continue
		}
		if isRSAKeyExchange(info.KeyExchange) && ctx.RSAKey(cfg) == nil {
			continue
		}
		if isPSKKeyExchange(info.KeyExchange) && cfg.PSK == nil {
			continue
		}
		ctx.Suite = info
		break
	}

	if ctx.Suite == nil {
		SendFatal(rl, AlertHandshakeFailure)
		return fmt.Errorf("%w: no suite in {%v} satisfies version %d / curve %v", ErrNoCipherChosen, ch.CipherSuites, ctx.NegotiatedMinor, ctx.ECCurve)
	}

	// verify_sig_alg is derived from the now-known MAC (§3): SHA-256
	// unless the negotiated MAC is SHA-384.
	if ctx.Suite.MAC == MACSHA384 {
		ctx.VerifySigAlg = HashSHA384
	} else {
		ctx.VerifySigAlg = HashSHA256
	}

	return nil
}

func isRSAKeyExchange(k KeyExchange) bool {
	return k == KeyExchangeRSA || k == KeyExchangeDHERSA || k == KeyExchangeECDHERSA
}

func isPSKKeyExchange(k KeyExchange) bool {
	return k == KeyExchangePSK || k == KeyExchangeDHEPSK
}

// SelectCompression implements §4.3's compression selection: DEFLATE
// only if compiled-in (Config.AllowDeflate) and offered; NULL otherwise.
func SelectCompression(ch *ClientHello, cfg *Config) CompressionMethod {
	if cfg.AllowDeflate {
		for _, m := range ch.CompressionMethods {
			if CompressionMethod(m) == CompressionDeflate {
				return CompressionDeflate
			}
		}
	}
	return CompressionNone
}

// CheckFallbackSCSV implements the TLS_FALLBACK_SCSV check (RFC 7507):
// a client signaling an inappropriate version fallback while the server
// supports a higher version is rejected.
func CheckFallbackSCSV(ch *ClientHello, cfg *Config, rl RecordLayer) error {
	for _, id := range ch.CipherSuites {
		if id != FallbackSCSV {
			continue
		}
		if ch.Minor < cfg.maxMinor() {
			if err := rl.SendAlert(AlertLevelFatal, AlertInappropriateFallback); err != nil {
				return err
			}
			return fmt.Errorf("%w: inappropriate protocol fallback", ErrBadClientHello)
		}
		break
	}
	return nil
}
