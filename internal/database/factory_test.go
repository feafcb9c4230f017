package database

import (
	"os"
	"path/filepath"
	"testing"

	"autobot-go/internal/config"
)

func TestNewLedgerFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewLedgerFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewLedgerFromConfig() error = %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite database creates data_dir", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "db")
		got, err := NewLedgerFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dataDir})
		if err != nil {
			t.Fatalf("NewLedgerFromConfig() error = %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dataDir, LedgerFile)); err != nil {
			t.Errorf("ledger file not created: %v", err)
		}
		if got.Path() != filepath.Join(dataDir, LedgerFile) {
			t.Errorf("Path() = %q, want %q", got.Path(), filepath.Join(dataDir, LedgerFile))
		}
	})

	errorCases := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{name: "sqlite without data_dir", cfg: config.DatabaseConfig{Type: "sqlite"}},
		{name: "postgres without url", cfg: config.DatabaseConfig{Type: "postgres"}},
		{name: "unknown type", cfg: config.DatabaseConfig{Type: "unknown"}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLedgerFromConfig(tt.cfg)
			if err == nil {
				t.Error("NewLedgerFromConfig() expected error, got nil")
			}
			if got != nil {
				t.Error("NewLedgerFromConfig() should return nil on error")
				got.Close()
			}
		})
	}
}
