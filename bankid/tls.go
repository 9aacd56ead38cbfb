package bankid

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

type Environment int

const (
	EnvironmentTest Environment = iota
	EnvironmentProduction
)

const (
	DefaultCertPath = "certs/bankid_cert.pem"
	DefaultKeyPath  = "certs/bankid_key.pem"

	testCAPath       = "certs/test.ca"
	productionCAPath = "certs/production.ca"

	testHost       = "appapi2.test.bankid.com"
	productionHost = "appapi2.bankid.com"
)

func ParseEnvironment(s string) (Environment, error) {
	switch s {
	case "test", "TEST", "":
		return EnvironmentTest, nil
	case "production", "PRODUCTION", "prod":
		return EnvironmentProduction, nil
	}

	return EnvironmentTest, fmt.Errorf("unknown environment '%s'", s)
}

func (e Environment) String() string {
	if e == EnvironmentProduction {
		return "production"
	}
	return "test"
}

// Host is the relying-party API host of the environment. The port is always 443.
func (e Environment) Host() string {
	if e == EnvironmentProduction {
		return productionHost
	}
	return testHost
}

// DefaultCAPath is the trust anchor BankID publishes for the environment.
func (e Environment) DefaultCAPath() string {
	if e == EnvironmentProduction {
		return productionCAPath
	}
	return testCAPath
}

// TLSConfig holds the material needed to open a mutually-authenticated
// connection to the relying-party API.
//
// The client certificate and key are usually extracted from the PKCS#12 bundle
// handed out by the bank (see `bankid convert`). The CA file is provided by
// BankID and only selects which servers are trusted.
type TLSConfig struct {
	Environment Environment
	CertPath    string
	KeyPath     string
	CAPath      string
}

// NewTLSConfig selects the CA trust anchor matching env. Empty paths fall back
// to DefaultCertPath and DefaultKeyPath.
func NewTLSConfig(env Environment, certPath string, keyPath string) TLSConfig {
	if certPath == "" {
		certPath = DefaultCertPath
	}
	if keyPath == "" {
		keyPath = DefaultKeyPath
	}

	return TLSConfig{
		Environment: env,
		CertPath:    certPath,
		KeyPath:     keyPath,
		CAPath:      env.DefaultCAPath(),
	}
}

// WithCAPath returns a copy trusting caPath instead of the environment default.
func (c TLSConfig) WithCAPath(caPath string) TLSConfig {
	c.CAPath = caPath
	return c
}

// Validate reports whether the certificate, key and CA files all exist and are readable.
func (c TLSConfig) Validate() bool {
	return c.Check() == nil
}

// Check is Validate with the reason: it names the first file that is missing or unreadable.
func (c TLSConfig) Check() error {
	files := []struct {
		kind string
		path string
	}{
		{"certificate", c.CertPath},
		{"key", c.KeyPath},
		{"CA", c.CAPath},
	}

	for _, f := range files {
		if err := readable(f.path); err != nil {
			return fmt.Errorf("%s file '%s' is not usable: %w", f.kind, f.path, err)
		}
	}

	return nil
}

func readable(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}

	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	stat, err := fh.Stat()
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return errors.New("is a directory")
	}

	return nil
}

// clientTLS loads the key pair and trust anchor into a *tls.Config.
//
// The server chain is always verified against the CA file. The hostname is
// only verified in production; the test environment is served under names
// its own CA does not cover.
func (c TLSConfig) clientTLS() (*tls.Config, error) {
	keyPair, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client key pair: %w", err)
	}

	caPEM, err := os.ReadFile(c.CAPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("CA file '%s' contains no PEM certificates", c.CAPath)
	}

	verifyHostname := c.Environment == EnvironmentProduction

	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{keyPair},
		RootCAs:      roots,

		// chain verification happens in VerifyConnection
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return errors.New("server presented no certificate")
			}

			opts := x509.VerifyOptions{
				Roots:         roots,
				Intermediates: x509.NewCertPool(),
			}
			for _, cert := range cs.PeerCertificates[1:] {
				opts.Intermediates.AddCert(cert)
			}
			if verifyHostname {
				opts.DNSName = cs.ServerName
			}

			_, err := cs.PeerCertificates[0].Verify(opts)
			return err
		},
	}, nil
}
