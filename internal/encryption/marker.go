package encryption

import (
	"bytes"
	"fmt"
	"io"

	"autobot-go/internal/autobot"
)

var marker = []byte("AUTOBOT\x00")

// MarkerEncryptor prefixes data with a fixed marker instead of encrypting
// it. It keeps the encrypted mirror path testable without key files.
type MarkerEncryptor struct{}

var _ autobot.Encryptor = MarkerEncryptor{}

func (MarkerEncryptor) Setup(string) error { return nil }

func (MarkerEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(marker); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (MarkerEncryptor) Unlock(string) (autobot.DecryptionContext, error) {
	return markerDecryption{}, nil
}

func (MarkerEncryptor) IsConfigured() bool { return true }

type markerDecryption struct{}

func (markerDecryption) Decrypt(r io.Reader, w io.Writer) error {
	head := make([]byte, len(marker))
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(head, marker) {
		return fmt.Errorf("missing marker")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
