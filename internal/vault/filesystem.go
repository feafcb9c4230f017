package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"autobot-go/internal/autobot"
)

// FileSystemVault mirrors objects as files under root, keeping the key's
// directory layout:
//
//	<root>/
//	  archive/<year>/<channel>/<author>/<file>
type FileSystemVault struct {
	name string
	root string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FileSystemVault{name: name, root: root}, nil
}

func (v *FileSystemVault) Put(_ context.Context, key string, r io.Reader) error {
	dest, err := v.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	return writeFile(dest, r)
}

func (v *FileSystemVault) Get(_ context.Context, key string, w io.Writer) error {
	src, err := v.path(key)
	if err != nil {
		return err
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("object not found: %s", key)
		}
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault root is a writable directory.
func (v *FileSystemVault) ValidateSetup(context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.root, ".tmp-probe-*")
	if err != nil {
		return fmt.Errorf("vault root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

func (v *FileSystemVault) path(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(v.root, filepath.FromSlash(key)), nil
}

// writeFile copies r to destPath through a temp file in the same directory
// and renames it into place, so readers never see a partial object.
func writeFile(destPath string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ autobot.Vault = (*FileSystemVault)(nil)
