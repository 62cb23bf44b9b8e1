package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "3030" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3030")
	}
	if cfg.StoreDriver != "postgres" {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, "postgres")
	}
	if !cfg.AllowNegativeStock {
		t.Error("AllowNegativeStock should default to true")
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled should default to true")
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.toml")
	file := `
port = "4000"
store_driver = "bolt"
allow_negative_stock = false
`
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}

	// Env overrides the file; the file overrides defaults.
	t.Setenv("PORT", "5000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want env override %q", cfg.Port, "5000")
	}
	if cfg.StoreDriver != "bolt" {
		t.Errorf("StoreDriver = %q, want file value %q", cfg.StoreDriver, "bolt")
	}
	if cfg.AllowNegativeStock {
		t.Error("AllowNegativeStock should come from the file as false")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3030" {
		t.Errorf("Port = %q, want default", cfg.Port)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"0", true, false},
		{"garbage", true, true}, // unparseable keeps the fallback
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := getEnvBool("TEST_BOOL", tt.fallback); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
