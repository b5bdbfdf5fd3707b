package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// EncryptionConfig defines the key derivation and cipher parameters
type EncryptionConfig struct {
	SCryptN      int // CPU/memory cost parameter
	SCryptR      int // Block size parameter
	SCryptP      int // Parallelization parameter
	SCryptKeyLen int // 32 for AES-256

	SaltSize  int
	NonceSize int
}

// DefaultEncryptionConfig returns the parameters used for stored secrets
func DefaultEncryptionConfig() *EncryptionConfig {
	return &EncryptionConfig{
		SCryptN:      32768,
		SCryptR:      8,
		SCryptP:      1,
		SCryptKeyLen: 32,
		SaltSize:     16,
		NonceSize:    12,
	}
}

// tokenVersion prefixes every token so the layout can change later
const tokenVersion byte = 1

var (
	// ErrEmptyPassphrase is returned when no passphrase is available
	ErrEmptyPassphrase = errors.New("passphrase cannot be empty")
	// ErrMalformedToken is returned for tokens that are not valid base64 or too short
	ErrMalformedToken = errors.New("malformed secret token")
	// ErrDecryptionFailed is returned when the passphrase is wrong or the token was altered
	ErrDecryptionFailed = errors.New("secret decryption failed")
)

// EncryptSecret seals plaintext with a key derived from passphrase.
// The result is base64(version | salt | nonce | ciphertext+tag).
func EncryptSecret(plaintext, passphrase string, config *EncryptionConfig) (string, error) {
	if plaintext == "" {
		return "", errors.New("plaintext cannot be empty")
	}
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}

	salt := make([]byte, config.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt, config)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, tokenVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), []byte{tokenVersion})

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptSecret opens a token produced by EncryptSecret
func DecryptSecret(token, passphrase string, config *EncryptionConfig) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	// version + salt + nonce + GCM tag
	if len(raw) < 1+config.SaltSize+config.NonceSize+16 {
		return "", ErrMalformedToken
	}
	if raw[0] != tokenVersion {
		return "", fmt.Errorf("%w: unsupported version %d", ErrMalformedToken, raw[0])
	}

	salt := raw[1 : 1+config.SaltSize]
	nonce := raw[1+config.SaltSize : 1+config.SaltSize+config.NonceSize]
	sealed := raw[1+config.SaltSize+config.NonceSize:]

	gcm, err := newGCM(passphrase, salt, config)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, []byte{tokenVersion})
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte, config *EncryptionConfig) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, config.SCryptN, config.SCryptR, config.SCryptP, config.SCryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, config.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// ValidateEncryptionConfig validates encryption configuration parameters
func ValidateEncryptionConfig(config *EncryptionConfig) error {
	if config == nil {
		return errors.New("encryption config cannot be nil")
	}
	if config.SCryptN < 16384 {
		return errors.New("SCryptN must be at least 16384")
	}
	if config.SCryptR < 8 {
		return errors.New("SCryptR must be at least 8")
	}
	if config.SCryptP < 1 {
		return errors.New("SCryptP must be at least 1")
	}
	if config.SCryptKeyLen != 32 {
		return errors.New("SCryptKeyLen must be 32 for AES-256")
	}
	if config.SaltSize < 16 {
		return errors.New("SaltSize must be at least 16")
	}
	if config.NonceSize != 12 {
		return errors.New("NonceSize must be 12 for AES-GCM")
	}
	return nil
}
