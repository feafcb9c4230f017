package encryption

import (
	"fmt"

	"autobot-go/internal/autobot"
	"autobot-go/internal/config"
)

// NewEncryptorFromConfig returns the encryptor selected by the config type,
// or nil, nil when mirrored copies are stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (autobot.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg.PublicKeyPath, cfg.PrivateKeyPath), nil
	case "test":
		return MarkerEncryptor{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
