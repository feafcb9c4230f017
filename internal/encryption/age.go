package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"autobot-go/internal/autobot"
)

// AgeEncryptor encrypts mirrored images with an X25519 age key. The public
// key is stored in plaintext; the private key is sealed with a passphrase
// (age scrypt) and only opened for restores.
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ autobot.Encryptor = (*AgeEncryptor)(nil)

func NewAgeEncryptor(publicKeyPath, privateKeyPath string) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  publicKeyPath,
		privateKeyPath: privateKeyPath,
	}
}

// Setup generates a key pair and writes both key files.
func (e *AgeEncryptor) Setup(passphrase string) error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	if err := os.WriteFile(e.publicKeyPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	sealer, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, sealer)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing private key: %w", err)
	}

	if err := os.WriteFile(e.privateKeyPath, sealed.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	return nil
}

// Encrypt streams r through age to w using the public key.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	pub, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		return fmt.Errorf("reading public key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(pub))
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients found in %s", e.publicKeyPath)
	}

	enc, err := age.Encrypt(w, recipients...)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(enc, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Unlock opens the private key with passphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (autobot.DecryptionContext, error) {
	sealed, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}

	opener, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(sealed), opener)
	if err != nil {
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}

	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in private key")
	}
	return &ageDecryption{identities: identities}, nil
}

func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

type ageDecryption struct {
	identities []age.Identity
}

func (d *ageDecryption) Decrypt(r io.Reader, w io.Writer) error {
	plain, err := age.Decrypt(r, d.identities...)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}
