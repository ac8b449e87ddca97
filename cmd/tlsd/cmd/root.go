package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/annetutil/tlsengine/pkg/handshake"
	"github.com/annetutil/tlsengine/pkg/identity"
	"github.com/annetutil/tlsengine/pkg/transport"
)

var rootExample = `
  Serve with a generated, throwaway identity:
    tlsd --addr :8443 --generate

  Serve with a certificate/key pair on disk:
    tlsd --addr :8443 --cert server.pem --key server.key --client-auth optional
`

// RootCommand wires the engine into a minimal demo server: accept TCP,
// run one handshake per connection, log the outcome. Flags are bound
// into viper so a config file named with --config can supply the same
// settings; no config file is read without that flag.
func RootCommand() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:     "tlsd",
		Short:   "Demo server driving the handshake engine over plain TCP",
		Example: rootExample,
		RunE: func(c *cobra.Command, args []string) error {
			logger, err := newLogger(debug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			cfg, err := buildHandshakeConfig(logger)
			if err != nil {
				return err
			}

			ln := transport.NewListener(viper.GetString("addr"), makeHandler(cfg, logger), transport.WithLogger(logger))

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return ln.Serve(ctx)
		},
	}

	root.PersistentFlags().String("addr", ":8443", "listen address")
	root.PersistentFlags().String("cert", "", "path to a PEM certificate")
	root.PersistentFlags().String("key", "", "path to a PEM private key")
	root.PersistentFlags().Bool("generate", false, "generate a throwaway self-signed identity instead of --cert/--key")
	root.PersistentFlags().String("client-auth", "none", "client certificate policy: none, optional, required")
	root.PersistentFlags().Bool("allow-deflate", false, "offer DEFLATE compression (CRIME-class risk, off by default)")
	root.PersistentFlags().StringP("config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := viper.BindPFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	cobra.OnInitialize(func() {
		if path := root.PersistentFlags().Lookup("config").Value.String(); path != "" {
			viper.SetConfigFile(path)
			_ = viper.ReadInConfig()
		}
	})

	return root
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildHandshakeConfig(logger *zap.Logger) (*handshake.Config, error) {
	var (
		key   handshake.RSAPrivateKey
		chain [][]byte
		err   error
	)

	switch {
	case viper.GetBool("generate"):
		var rk *identity.RSAKey
		rk, chain, err = identity.GenerateEphemeral(2048)
		key = rk
		logger.Warn("using a generated, throwaway identity — not for production use")
	case viper.GetString("cert") != "" && viper.GetString("key") != "":
		var rk *identity.RSAKey
		rk, chain, err = identity.LoadRSAKeyPair(viper.GetString("cert"), viper.GetString("key"))
		key = rk
	default:
		return nil, errors.New("one of --generate or --cert/--key is required")
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	policy, err := parseClientAuth(viper.GetString("client-auth"))
	if err != nil {
		return nil, err
	}

	cfg := &handshake.Config{
		RSAKey:       key,
		Certificates: chain,
		ClientAuth:   policy,
		AllowDeflate: viper.GetBool("allow-deflate"),
		Logger:       logger,
	}
	return cfg, nil
}

func parseClientAuth(v string) (handshake.ClientAuthPolicy, error) {
	switch v {
	case "", "none":
		return handshake.VerifyNone, nil
	case "optional":
		return handshake.VerifyOptional, nil
	case "required":
		return handshake.VerifyRequired, nil
	default:
		return 0, fmt.Errorf("unknown --client-auth value %q", v)
	}
}

func makeHandler(cfg *handshake.Config, logger *zap.Logger) transport.HandshakeFunc {
	return func(ctx context.Context, rc *transport.RecordConn) error {
		hctx := handshake.NewContext(handshake.InitialHandshake, handshake.SecureRenegotiationLegacy, nil, nil)
		defer hctx.Zeroize()

		err := handshake.Run(hctx, cfg, rc, nil)
		if err != nil {
			logger.Debug("handshake error", zap.Error(err))
			return err
		}
		logger.Info("handshake complete", zap.String("suite", hctx.Suite.Name))
		return nil
	}
}
