package bankid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTLSConfigSelectsTrustAnchor(t *testing.T) {
	test := NewTLSConfig(EnvironmentTest, "", "")
	if test.CAPath != "certs/test.ca" || test.CertPath != DefaultCertPath || test.KeyPath != DefaultKeyPath {
		t.Errorf("test: got %+v", test)
	}

	prod := NewTLSConfig(EnvironmentProduction, "a.pem", "b.pem")
	if prod.CAPath != "certs/production.ca" || prod.CertPath != "a.pem" || prod.KeyPath != "b.pem" {
		t.Errorf("production: got %+v", prod)
	}

	if EnvironmentTest.Host() != "appapi2.test.bankid.com" || EnvironmentProduction.Host() != "appapi2.bankid.com" {
		t.Errorf("unexpected hosts %s / %s", EnvironmentTest.Host(), EnvironmentProduction.Host())
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		in      string
		want    Environment
		wantErr bool
	}{
		{"", EnvironmentTest, false},
		{"test", EnvironmentTest, false},
		{"production", EnvironmentProduction, false},
		{"PRODUCTION", EnvironmentProduction, false},
		{"staging", EnvironmentTest, true},
	}

	for _, tt := range tests {
		got, err := ParseEnvironment(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("%q: got (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestValidateEveryMissingSubset(t *testing.T) {
	dir := t.TempDir()

	names := []string{"cert.pem", "key.pem", "ca.pem"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	// bit i set means file i is missing
	for mask := 0; mask < 8; mask++ {
		paths := make([]string, 3)
		for i, n := range names {
			if mask&(1<<i) != 0 {
				paths[i] = filepath.Join(dir, "missing-"+n)
			} else {
				paths[i] = filepath.Join(dir, n)
			}
		}

		cfg := NewTLSConfig(EnvironmentTest, paths[0], paths[1]).WithCAPath(paths[2])

		want := mask == 0
		if got := cfg.Validate(); got != want {
			t.Errorf("mask %03b: Validate() = %v, want %v", mask, got, want)
		}
	}
}

func TestCheckNamesMissingFile(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	if err := os.WriteFile(cert, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := NewTLSConfig(EnvironmentTest, cert, filepath.Join(dir, "nope.pem")).Check()
	if err == nil || !strings.Contains(err.Error(), "key file") || !strings.Contains(err.Error(), "nope.pem") {
		t.Errorf("got %v", err)
	}

	err = NewTLSConfig(EnvironmentTest, dir, cert).WithCAPath(cert).Check()
	if err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Errorf("directory accepted as certificate: %v", err)
	}
}
