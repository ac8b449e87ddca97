package handshake

import (
	"fmt"

	"go.uber.org/zap"
)

// driverState carries the per-handshake bookkeeping that doesn't belong
// on Context: the running transcript hash, whether CertificateRequest
// was sent (governing the ClientCertificate skip rule), and the
// master-secret derivation seam.
type driverState struct {
	transcript    *Transcript
	certRequested bool
	deriver       MasterSecretDeriver
}

// Run drives one complete handshake to HandshakeOver or a fatal error,
// implementing C7's linear state graph (§4.7) including its skip rules
// (P8): a message that doesn't apply to the negotiated suite still
// advances State by exactly one, producing no wire traffic.
//
// deriver may be nil, in which case DefaultMasterSecretDeriver (the
// RFC 5246 PRF) is used.
func Run(ctx *Context, cfg *Config, rl RecordLayer, deriver MasterSecretDeriver) error {
	if deriver == nil {
		deriver = DefaultMasterSecretDeriver
	}
	d := &driverState{deriver: deriver}

	for ctx.State != StateHandshakeOver {
		from := ctx.State
		if err := step(ctx, cfg, rl, d); err != nil {
			if desc, ok := alertFor(err); ok {
				SendFatal(rl, desc)
				cfg.logger().Debug("handshake alert sent",
					zap.Int("state", int(from)),
					zap.Uint8("alert", uint8(desc)),
					zap.Error(err))
			}
			return err
		}
		cfg.logger().Debug("handshake state advanced",
			zap.Int("from", int(from)),
			zap.Int("to", int(ctx.State)))
	}
	cfg.logger().Info("handshake complete",
		zap.Bool("resumed", ctx.Resume),
		zap.String("suite", ctx.Suite.Name))
	return nil
}

// step executes exactly one state of §4.7's graph.
func step(ctx *Context, cfg *Config, rl RecordLayer, d *driverState) error {
	switch ctx.State {

	case StateHelloRequest:
		// Server-initiated renegotiation (sending HelloRequest) is out of
		// scope; a fresh handshake starts directly at ClientHello.
		ctx.Advance()
		return nil

	case StateClientHello:
		raw, err := rl.ReadHandshake()
		if err != nil {
			return err
		}
		ch, err := ParseClientHello(raw, ctx, cfg, rl)
		if err != nil {
			return err
		}
		if err := CheckFallbackSCSV(ch, cfg, rl); err != nil {
			return err
		}
		if err := SelectCipherSuite(ch, ctx, cfg, rl); err != nil {
			return err
		}
		ctx.Session.Compression = SelectCompression(ch, cfg)
		CheckResumption(ch, ctx, cfg)
		if ctx.Resume {
			cfg.logger().Info("resuming session", zap.String("suite", ctx.Suite.Name))
		}

		d.transcript = NewTranscript(ctx.Suite)
		d.transcript.Write(raw)
		ctx.Advance()
		return nil

	case StateServerHello:
		_, msg, err := WriteServerHello(ctx, cfg)
		if err != nil {
			return err
		}
		if err := rl.WriteHandshake(msg); err != nil {
			return err
		}
		d.transcript.Write(msg)

		if ctx.Resume {
			return runResumedFinish(ctx, cfg, rl, d)
		}
		ctx.Advance()
		return nil

	case StateServerCertificate:
		if isPSKKeyExchange(ctx.Suite.KeyExchange) {
			ctx.Advance()
			return nil
		}
		msg, err := WriteServerCertificate(cfg.Certificates)
		if err != nil {
			return err
		}
		if err := rl.WriteHandshake(msg); err != nil {
			return err
		}
		d.transcript.Write(msg)
		ctx.Advance()
		return nil

	case StateServerKeyExchange:
		msg, err := WriteServerKeyExchange(ctx, cfg)
		if err != nil {
			return err
		}
		if msg != nil {
			if err := rl.WriteHandshake(msg); err != nil {
				return err
			}
			d.transcript.Write(msg)
		}
		ctx.Advance()
		return nil

	case StateCertificateRequest:
		msg := WriteCertificateRequest(ctx, cfg)
		if msg != nil {
			if err := rl.WriteHandshake(msg); err != nil {
				return err
			}
			d.transcript.Write(msg)
			d.certRequested = true
		}
		ctx.Advance()
		return nil

	case StateServerHelloDone:
		msg := wrapHandshake(HandshakeServerHelloDone, nil)
		if err := rl.WriteHandshake(msg); err != nil {
			return err
		}
		d.transcript.Write(msg)
		if err := rl.Flush(); err != nil {
			return err
		}
		ctx.Advance()
		return nil

	case StateClientCertificate:
		if !d.certRequested {
			ctx.Advance()
			return nil
		}
		raw, err := rl.ReadHandshake()
		if err != nil {
			return err
		}
		certChain, err := ParseClientCertificate(raw, rl)
		if err != nil {
			return err
		}
		if len(certChain) == 0 && cfg.ClientAuth == VerifyRequired {
			SendFatal(rl, AlertHandshakeFailure)
			return fmt.Errorf("%w: client certificate required", ErrBadClientHello)
		}
		if err := ClientCertFromChain(certChain, ctx); err != nil {
			return err
		}
		d.transcript.Write(raw)
		ctx.Advance()
		return nil

	case StateClientKeyExchange:
		raw, err := rl.ReadHandshake()
		if err != nil {
			return err
		}
		if err := ParseClientKeyExchange(raw, ctx, cfg); err != nil {
			return err
		}
		d.transcript.Write(raw)
		// derive_keys runs after every premaster branch, including the
		// RSA Bleichenbacher-anomaly path (§4.5 supplemented behavior):
		// that path returns nil from ParseClientKeyExchange, so only a
		// read error or a rejected message skips this call.
		if err := DeriveMasterSecret(ctx, d.deriver); err != nil {
			return err
		}
		ctx.Advance()
		return nil

	case StateCertificateVerify:
		if CertificateVerifySkipped(ctx) {
			ctx.Advance()
			return nil
		}
		raw, err := rl.ReadHandshake()
		if err != nil {
			return err
		}
		sum := d.transcript.Clone().Sum(ctx.NegotiatedMinor)
		if err := ParseCertificateVerify(raw, ctx, sum); err != nil {
			return err
		}
		d.transcript.Write(raw)
		ctx.Advance()
		return nil

	case StateClientChangeCipherSpec:
		if err := rl.ReadChangeCipherSpec(); err != nil {
			return err
		}
		ctx.Advance()
		return nil

	case StateClientFinished:
		raw, err := rl.ReadHandshake()
		if err != nil {
			return err
		}
		sum := d.transcript.Clone().Sum(ctx.NegotiatedMinor)
		if err := VerifyFinished(raw, ctx, true, sum); err != nil {
			return err
		}
		d.transcript.Write(raw)
		ctx.Advance()
		return nil

	case StateServerChangeCipherSpec:
		if err := rl.WriteChangeCipherSpec(); err != nil {
			return err
		}
		ctx.Advance()
		return nil

	case StateServerFinished:
		sum := d.transcript.Clone().Sum(ctx.NegotiatedMinor)
		msg := ComputeFinished(ctx, false, sum)
		if err := rl.WriteHandshake(msg); err != nil {
			return err
		}
		d.transcript.Write(msg)
		if err := rl.Flush(); err != nil {
			return err
		}
		ctx.Advance()
		return nil

	case StateFlushBuffers:
		ctx.Advance()
		return nil

	case StateHandshakeWrapup:
		if cfg.Sessions != nil && !ctx.Resume {
			cfg.Sessions.Store(&ctx.Session)
		}
		ctx.Advance()
		return nil

	default:
		return fmt.Errorf("%w: unknown handshake state %d", ErrBadInputData, ctx.State)
	}
}

// runResumedFinish implements the abbreviated handshake (§4.4, P7): on
// a cache hit the server sends ChangeCipherSpec+Finished immediately
// after ServerHello, then waits for the client's ChangeCipherSpec and
// Finished — the reverse of the full handshake's message order, which
// is why it can't be expressed as a plain walk through the State enum.
func runResumedFinish(ctx *Context, cfg *Config, rl RecordLayer, d *driverState) error {
	if err := rl.WriteChangeCipherSpec(); err != nil {
		return err
	}

	sum := d.transcript.Clone().Sum(ctx.NegotiatedMinor)
	msg := ComputeFinished(ctx, false, sum)
	if err := rl.WriteHandshake(msg); err != nil {
		return err
	}
	d.transcript.Write(msg)
	if err := rl.Flush(); err != nil {
		return err
	}

	if err := rl.ReadChangeCipherSpec(); err != nil {
		return err
	}

	raw, err := rl.ReadHandshake()
	if err != nil {
		return err
	}
	sum = d.transcript.Clone().Sum(ctx.NegotiatedMinor)
	if err := VerifyFinished(raw, ctx, true, sum); err != nil {
		return err
	}
	d.transcript.Write(raw)

	ctx.State = StateHandshakeOver
	return nil
}
