package cmd

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/pkcs12"
	"golang.org/x/term"

	"github.com/offlinehacker/gobankid/bankid"
)

var (
	p12Password string
	outDir      string
)

var convertCmd = &cobra.Command{
	Use:   "convert <bundle.p12>",
	Short: "Convert a PKCS#12 relying-party certificate into PEM files",
	Long: `Convert a PKCS#12 bundle (as issued for BankID relying parties) into
bankid_cert.pem and bankid_key.pem, the files a session is configured with.
It prompts for the passphrase if --password is not given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pfx, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read bundle: %w", err)
		}

		if !cmd.Flags().Changed("password") {
			p12Password = promptPassword()
		}

		blocks, err := pkcs12.ToPEM(pfx, p12Password)
		if err != nil {
			return fmt.Errorf("failed to decode bundle: %w", err)
		}

		certPEM, keyPEM, err := splitBundle(blocks)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		certPath := filepath.Join(outDir, filepath.Base(bankid.DefaultCertPath))
		keyPath := filepath.Join(outDir, filepath.Base(bankid.DefaultKeyPath))

		if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
			return fmt.Errorf("failed to write certificate: %w", err)
		}
		if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
			return fmt.Errorf("failed to write key: %w", err)
		}

		fmt.Printf("Wrote %s and %s\n", certPath, keyPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&p12Password, "password", "p", "", "Passphrase of the bundle")
	convertCmd.Flags().StringVarP(&outDir, "out", "o", filepath.Dir(bankid.DefaultCertPath), "Output directory")
}

func promptPassword() string {
	fmt.Print("Enter the bundle passphrase: ")
	passwordBytes, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(passwordBytes)
}

// splitBundle separates the decoded bundle into the certificate file (the
// certificate matching the key first, then the rest of the chain) and the key
// file. ToPEM labels every key "PRIVATE KEY" whatever its encoding; the label
// is corrected here.
func splitBundle(blocks []*pem.Block) ([]byte, []byte, error) {
	var key *pem.Block
	var certs []*pem.Block

	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			if key != nil {
				return nil, nil, errors.New("bundle contains more than one private key")
			}
			key = b
		case "CERTIFICATE":
			certs = append(certs, b)
		}
	}

	if key == nil {
		return nil, nil, errors.New("bundle contains no private key")
	}
	if len(certs) == 0 {
		return nil, nil, errors.New("bundle contains no certificate")
	}

	keyID := key.Headers["localKeyId"]
	for i, c := range certs {
		if keyID != "" && c.Headers["localKeyId"] == keyID {
			certs[0], certs[i] = certs[i], certs[0]
			break
		}
	}

	var certPEM bytes.Buffer
	for _, c := range certs {
		if err := pem.Encode(&certPEM, &pem.Block{Type: "CERTIFICATE", Bytes: c.Bytes}); err != nil {
			return nil, nil, fmt.Errorf("failed to encode certificate: %w", err)
		}
	}

	keyType, err := keyLabel(key.Bytes)
	if err != nil {
		return nil, nil, err
	}

	return certPEM.Bytes(), pem.EncodeToMemory(&pem.Block{Type: keyType, Bytes: key.Bytes}), nil
}

func keyLabel(der []byte) (string, error) {
	if _, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return "RSA PRIVATE KEY", nil
	}
	if _, err := x509.ParseECPrivateKey(der); err == nil {
		return "EC PRIVATE KEY", nil
	}
	if _, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return "PRIVATE KEY", nil
	}
	return "", errors.New("unsupported private key encoding")
}
