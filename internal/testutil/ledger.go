package testutil

import (
	"testing"

	"autobot-go/internal/autobot"
	"autobot-go/internal/database"
	"autobot-go/internal/encryption"
	"autobot-go/internal/vault"
)

// NewTestLedger opens a migrated in-memory SQLite ledger that is closed when
// the test completes.
func NewTestLedger(t *testing.T) *database.SQLLedger {
	t.Helper()

	l, err := database.NewSQLiteLedger(":memory:")
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// NewTestVault returns an in-memory vault.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}

// NewTestEncryptor returns an encryptor that needs no key files.
func NewTestEncryptor() autobot.Encryptor {
	return encryption.MarkerEncryptor{}
}
