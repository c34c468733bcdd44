// Package credentials provides secure credential storage for the sessionarc CLI.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"
)

const (
	keyringService = "sessionarc-cli"
	keyringUser    = "encryption-key"

	// AES-256 key length; every provider must return exactly this many bytes.
	keyLength = 32

	// encryptionKeyEnvVar overrides the keyring, mainly for CI where no
	// Secret Service is running.
	encryptionKeyEnvVar = "SESSIONARC_ENCRYPTION_KEY"
)

// Argon2id parameters for passphrase-derived keys. Changing these changes
// the derived key, so existing credential files would stop decrypting.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
)

// ErrKeyringUnavailable indicates the system keyring is not available.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// KeyProvider yields the key that encrypts the Zoom credential file.
type KeyProvider interface {
	// GetKey returns the 32-byte encryption key, generating and storing
	// one if none exists yet.
	GetKey() ([]byte, error)

	// ResetKey replaces the key with a fresh one. Credentials encrypted
	// under the old key become unreadable.
	ResetKey() ([]byte, error)

	// Description names the storage mechanism for `sessionarc auth status`.
	Description() string
}

// KeyringKeyProvider keeps the key in the OS keyring (macOS Keychain,
// Windows Credential Manager, Linux Secret Service). The key is stored
// hex-encoded under the sessionarc-cli service entry.
type KeyringKeyProvider struct {
	mu sync.Mutex
}

func NewKeyringKeyProvider() *KeyringKeyProvider {
	return &KeyringKeyProvider{}
}

// GetKey reads the key from the keyring, minting and storing a fresh
// random one on first use. A stored value that fails to decode to 32
// bytes is treated as absent and replaced.
func (p *KeyringKeyProvider) GetKey() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keyHex, err := keyring.Get(keyringService, keyringUser)
	if err == nil {
		key, decErr := hex.DecodeString(keyHex)
		if decErr == nil && len(key) == keyLength {
			return key, nil
		}
	}

	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}

	return p.mintKey()
}

func (p *KeyringKeyProvider) ResetKey() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mintKey()
}

// mintKey generates a random key and writes it to the keyring. Caller
// holds p.mu.
func (p *KeyringKeyProvider) mintKey() ([]byte, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating random key: %w", err)
	}

	if err := keyring.Set(keyringService, keyringUser, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("%w: storing key: %v", ErrKeyringUnavailable, err)
	}

	return key, nil
}

func (p *KeyringKeyProvider) Description() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// PassphraseKeyProvider derives the key from a passphrase with Argon2id,
// for machines where no keyring is running. The salt lives next to the
// encrypted credential file; losing it loses the credentials.
type PassphraseKeyProvider struct {
	passphrase string
	salt       []byte
}

func NewPassphraseKeyProvider(passphrase string, salt []byte) *PassphraseKeyProvider {
	return &PassphraseKeyProvider{
		passphrase: passphrase,
		salt:       salt,
	}
}

func (p *PassphraseKeyProvider) GetKey() ([]byte, error) {
	if p.passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	if len(p.salt) == 0 {
		return nil, errors.New("salt is required")
	}

	key := argon2.IDKey(
		[]byte(p.passphrase),
		p.salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		keyLength,
	)

	return key, nil
}

// ResetKey re-derives the same key; a passphrase key has nothing to rotate.
func (p *PassphraseKeyProvider) ResetKey() ([]byte, error) {
	return p.GetKey()
}

func (p *PassphraseKeyProvider) Description() string {
	return "Passphrase-derived key (Argon2id)"
}

// GenerateSalt returns a fresh 16-byte salt for passphrase derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// EnvKeyProvider reads a hex-encoded key from an environment variable.
// CI sets SESSIONARC_ENCRYPTION_KEY; nothing is ever written back.
type EnvKeyProvider struct {
	envVar string
}

func NewEnvKeyProvider(envVar string) *EnvKeyProvider {
	return &EnvKeyProvider{envVar: envVar}
}

func (p *EnvKeyProvider) GetKey() ([]byte, error) {
	keyHex := os.Getenv(p.envVar)
	if keyHex == "" {
		return nil, fmt.Errorf("environment variable %s not set", p.envVar)
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid key in %s: %w", p.envVar, err)
	}

	if len(key) != keyLength {
		return nil, fmt.Errorf("key in %s must be %d bytes, got %d", p.envVar, keyLength, len(key))
	}

	return key, nil
}

func (p *EnvKeyProvider) ResetKey() ([]byte, error) {
	return nil, errors.New("cannot reset environment-based key")
}

func (p *EnvKeyProvider) Description() string {
	return fmt.Sprintf("Environment variable (%s)", p.envVar)
}

// GetDefaultKeyProvider picks the provider for this machine: the env
// override when SESSIONARC_ENCRYPTION_KEY is set, otherwise the OS
// keyring. A missing keyring surfaces as an error naming the env
// variable rather than silently falling back to a weaker store.
func GetDefaultKeyProvider() (KeyProvider, error) {
	if os.Getenv(encryptionKeyEnvVar) != "" {
		return NewEnvKeyProvider(encryptionKeyEnvVar), nil
	}

	provider := NewKeyringKeyProvider()

	// Exercises the keyring once so a broken Secret Service fails here,
	// not halfway through an auth command.
	if _, err := provider.GetKey(); err != nil {
		if errors.Is(err, ErrKeyringUnavailable) {
			return nil, fmt.Errorf("system keyring unavailable; set %s environment variable: %w", encryptionKeyEnvVar, err)
		}
		return nil, err
	}

	return provider, nil
}
