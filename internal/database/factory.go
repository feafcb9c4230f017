package database

import (
	"fmt"
	"os"
	"path/filepath"

	"autobot-go/internal/config"
)

// LedgerFile is the SQLite file name inside data_dir.
const LedgerFile = "autobot.db"

// NewLedgerFromConfig opens the ledger selected by the database config type.
func NewLedgerFromConfig(cfg config.DatabaseConfig) (*SQLLedger, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteLedger(filepath.Join(cfg.DataDir, LedgerFile))
	case "memory":
		return NewSQLiteLedger(":memory:")
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("url required for postgres database")
		}
		return NewPostgresLedger(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
