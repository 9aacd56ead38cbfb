package config

import (
	"fmt"
	"net"
	"time"

	"github.com/Netflix/go-env"

	"github.com/offlinehacker/gobankid/bankid"
)

// Environment variables with defaults
type Config struct {

	// relying-party settings
	BankIDEnvironment string        `env:"BANKID_ENVIRONMENT,default=test"`
	CertPath          string        `env:"BANKID_CERT_PATH,default=certs/bankid_cert.pem"`
	KeyPath           string        `env:"BANKID_KEY_PATH,default=certs/bankid_key.pem"`
	CAPath            string        `env:"BANKID_CA_PATH"`
	EndUserIP         string        `env:"BANKID_END_USER_IP,default=127.0.0.1"`
	RequestTimeout    time.Duration `env:"BANKID_TIMEOUT,default=30s"`
	PollInterval      time.Duration `env:"POLL_INTERVAL,default=2s"`
	OrderTTL          time.Duration `env:"ORDER_TTL,default=30s"`
	AuthTimeout       time.Duration `env:"AUTH_TIMEOUT,default=5m"`

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	LogLevel              string        `env:"LOG_LEVEL,default=info"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
}

var validEnvs = map[string]bool{
	"dev":  true,
	"test": true,
	"prod": true,
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnvSet reads the configuration from es instead of the process environment.
func FromEnvSet(es env.EnvSet) (*Config, error) {
	var cfg Config

	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have no usable default. It is run again
// after command-line flags have been applied.
func (c *Config) Validate() error {
	if _, err := bankid.ParseEnvironment(c.BankIDEnvironment); err != nil {
		return fmt.Errorf("invalid BANKID_ENVIRONMENT: %w", err)
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", c.Environment)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.EndUserIP != "" && net.ParseIP(c.EndUserIP) == nil {
		return fmt.Errorf("BANKID_END_USER_IP is not an IP address: %s", c.EndUserIP)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("BANKID_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.OrderTTL <= 0 {
		return fmt.Errorf("ORDER_TTL must be positive")
	}
	if c.AuthTimeout < c.OrderTTL {
		return fmt.Errorf("AUTH_TIMEOUT must not be shorter than ORDER_TTL")
	}
	return nil
}

// TLS derives the session configuration. An empty CAPath selects the
// environment's trust anchor.
func (c *Config) TLS() bankid.TLSConfig {
	environment, _ := bankid.ParseEnvironment(c.BankIDEnvironment)

	tlsCfg := bankid.NewTLSConfig(environment, c.CertPath, c.KeyPath)
	if c.CAPath != "" {
		tlsCfg = tlsCfg.WithCAPath(c.CAPath)
	}
	return tlsCfg
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}
