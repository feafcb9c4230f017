package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"autobot-go/internal/autobot"
)

// MemoryVault keeps mirrored objects in memory. Safe for concurrent use.
type MemoryVault struct {
	name    string
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		objects: make(map[string][]byte),
	}
}

func (m *MemoryVault) Put(_ context.Context, key string, r io.Reader) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *MemoryVault) Get(_ context.Context, key string, w io.Writer) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("object not found: %s", key)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryVault) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}

var _ autobot.Vault = (*MemoryVault)(nil)
