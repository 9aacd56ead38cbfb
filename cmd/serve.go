package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/offlinehacker/gobankid/internal/server"
	"github.com/offlinehacker/gobankid/qrcode"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo HTTP API (/init, /poll, /payment, /cancel)",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// no QR code derivation ships here; handles only track order lifetime
		registry := qrcode.NewRegistry(qrcode.Lifetime(cfg.OrderTTL, nil), qrcode.WithTTL(cfg.OrderTTL))

		log.Info("bankid session ready",
			slog.String("environment", session.TLSConfig().Environment.String()))

		return server.NewServer(cfg, session, registry, log).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
