package autobot

import "io"

// Encryptor protects mirrored images. Encryption only needs the public key;
// decryption needs the passphrase that unlocks the private key.
type Encryptor interface {
	// Setup generates a key pair and stores the private key encrypted with
	// passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context that can
	// decrypt mirrored objects.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory only.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
