package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"popclient/internal/app"
	"popclient/internal/domain/types"
	"popclient/internal/poperr"
)

var (
	v    = viper.New()
	cfg  app.Config
	wire *app.Wire

	qrPayload string
	laoFlag   string
)

func Execute() error {
	root := &cobra.Command{
		Use:           "pop",
		Short:         "Proof-of-personhood LAO client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := app.DefaultHome()
			if err != nil {
				return err
			}
			app.SetDefaults(v, home)
			if cfg, err = app.LoadConfig(v); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return poperr.WrapConfiguration(err, "create %s", cfg.Home)
			}
			logger, err := app.NewLogger(cfg.LogLevel, os.Stderr)
			if err != nil {
				return err
			}
			wire, err = app.NewWire(cfg, logger)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("home", "", "data dir (default ~/.pop)")
	flags.StringSlice("servers", nil, "server addresses, first one primary (e.g. ws://127.0.0.1:9000/client)")
	flags.Duration("request-timeout", 0, "how long to wait for a server answer")
	flags.String("log-level", "", "trace, debug, info, warn or error")
	flags.StringP("passphrase", "p", "", "passphrase protecting the keystore (or POP_PASSPHRASE)")
	for key, flag := range map[string]string{
		"home":            "home",
		"servers":         "servers",
		"request_timeout": "request-timeout",
		"log_level":       "log-level",
		"passphrase":      "passphrase",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}

	root.AddCommand(initCmd(), fingerprintCmd(), walletCmd(), qrCmd(), connectCmd(), chirpCmd())
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func passphrase() (string, error) {
	p := v.GetString("passphrase")
	if p == "" {
		return "", poperr.Configurationf("passphrase required (-p or POP_PASSPHRASE)")
	}
	return p, nil
}

// addConnectFlags registers --qr and --lao on cmd.
func addConnectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&qrPayload, "qr", "", "connect QR payload (JSON)")
	cmd.Flags().StringVar(&laoFlag, "lao", "", "LAO id, used with the configured servers when --qr is not given")
}

// connectPayload returns --qr, or a payload built from --lao and the
// configured servers.
func connectPayload() ([]byte, error) {
	if qrPayload != "" {
		return []byte(qrPayload), nil
	}
	if laoFlag == "" || len(cfg.Servers) == 0 {
		return nil, poperr.Configurationf("give --qr, or --lao with servers configured")
	}
	p := types.ConnectPayload{Lao: laoFlag}
	if len(cfg.Servers) == 1 {
		p.Server = cfg.Servers[0]
	} else {
		p.Servers = cfg.Servers
	}
	return json.Marshal(p)
}
