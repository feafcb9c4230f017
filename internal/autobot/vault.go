package autobot

import (
	"context"
	"io"
)

// Vault is an offsite mirror for archived images. Keys are slash separated
// paths relative to the archive root.
type Vault interface {
	// Put stores everything read from r under key, replacing any old copy.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get writes the object stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
