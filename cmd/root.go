package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/offlinehacker/gobankid/bankid"
	"github.com/offlinehacker/gobankid/internal/config"
	"github.com/offlinehacker/gobankid/internal/logger"
)

var (
	environmentFlag string
	certFlag        string
	keyFlag         string
	caFlag          string
	logLevelFlag    string
)

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bankid",
	Short: "bankid is a CLI for the BankID relying-party API",
	Long: `bankid talks to the BankID relying-party API (v6.0) over mutual TLS.
It starts, collects and cancels orders, converts certificate bundles and can
serve a small demo HTTP API in front of one shared session.

Configuration is read from BANKID_* environment variables; flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("env") {
			loaded.BankIDEnvironment = environmentFlag
		}
		if flags.Changed("cert") {
			loaded.CertPath = certFlag
		}
		if flags.Changed("key") {
			loaded.KeyPath = keyFlag
		}
		if flags.Changed("ca") {
			loaded.CAPath = caFlag
		}
		if flags.Changed("log-level") {
			loaded.LogLevel = logLevelFlag
		}

		if err := loaded.Validate(); err != nil {
			return err
		}

		cfg = loaded
		log = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&environmentFlag, "env", "test", "BankID environment (test|production)")
	pf.StringVar(&certFlag, "cert", bankid.DefaultCertPath, "Client certificate (PEM)")
	pf.StringVar(&keyFlag, "key", bankid.DefaultKeyPath, "Client private key (PEM)")
	pf.StringVar(&caFlag, "ca", "", "CA file (default: the environment's trust anchor)")
	pf.StringVar(&logLevelFlag, "log-level", "info", "Log level (debug|info|warn|error|none)")
}

// newSession opens a session from the loaded configuration and fails if it
// could not be initialised.
func newSession() (*bankid.Session, error) {
	session := bankid.New(cfg.TLS(),
		bankid.WithLogger(log),
		bankid.WithTimeout(cfg.RequestTimeout))

	if !session.Initialized() {
		return nil, fmt.Errorf("failed to initialize bankid session: %w", session.InitError())
	}
	return session, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
