package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"popclient/internal/app"
	"popclient/internal/message"
	"popclient/internal/relay"
)

func main() {
	var (
		addr     string
		path     string
		logLevel string
		cacheLen int
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Serve an in-memory LAO server over websocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := app.NewLogger(logLevel, os.Stderr)
			if err != nil {
				return err
			}
			v, err := message.NewValidator(message.NewSchema(), cacheLen)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle(path, relay.NewHub(logger, v))
			logger.Info().Str("addr", addr).Str("path", path).Msg("relay listening")
			if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9000", "listen address")
	cmd.Flags().StringVar(&path, "path", "/client", "websocket path")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")
	cmd.Flags().IntVar(&cacheLen, "verified-cache", 1024, "verified message ids to remember")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
