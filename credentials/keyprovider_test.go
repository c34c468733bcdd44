package credentials

import (
	"bytes"
	"testing"
)

func TestEnvKeyProvider(t *testing.T) {
	t.Setenv(encryptionKeyEnvVar, testEncryptionKey)

	provider := NewEnvKeyProvider(encryptionKeyEnvVar)
	key, err := provider.GetKey()
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if len(key) != keyLength {
		t.Errorf("key length = %d, want %d", len(key), keyLength)
	}
}

func TestEnvKeyProvider_Unset(t *testing.T) {
	t.Setenv(encryptionKeyEnvVar, "")

	provider := NewEnvKeyProvider(encryptionKeyEnvVar)
	if _, err := provider.GetKey(); err == nil {
		t.Error("Expected error when env var not set")
	}
}

func TestEnvKeyProvider_WrongLength(t *testing.T) {
	t.Setenv(encryptionKeyEnvVar, "abcd")

	provider := NewEnvKeyProvider(encryptionKeyEnvVar)
	if _, err := provider.GetKey(); err == nil {
		t.Error("Expected error for short key")
	}
}

func TestEnvKeyProvider_InvalidHex(t *testing.T) {
	t.Setenv(encryptionKeyEnvVar, "zz")

	provider := NewEnvKeyProvider(encryptionKeyEnvVar)
	if _, err := provider.GetKey(); err == nil {
		t.Error("Expected error for non-hex key")
	}
}

func TestEnvKeyProvider_ResetUnsupported(t *testing.T) {
	provider := NewEnvKeyProvider(encryptionKeyEnvVar)
	if _, err := provider.ResetKey(); err == nil {
		t.Error("Expected error for env key reset")
	}
}

func TestPassphraseKeyProvider(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}

	provider := NewPassphraseKeyProvider("correct horse battery staple", salt)
	key, err := provider.GetKey()
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if len(key) != keyLength {
		t.Errorf("key length = %d, want %d", len(key), keyLength)
	}

	// Same passphrase and salt derive the same key.
	again, err := provider.GetKey()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key, again) {
		t.Error("Derivation must be deterministic for fixed inputs")
	}

	// A different salt derives a different key.
	otherSalt, _ := GenerateSalt()
	other, err := NewPassphraseKeyProvider("correct horse battery staple", otherSalt).GetKey()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(key, other) {
		t.Error("Different salts must derive different keys")
	}
}

func TestPassphraseKeyProvider_MissingInputs(t *testing.T) {
	salt, _ := GenerateSalt()

	if _, err := NewPassphraseKeyProvider("", salt).GetKey(); err == nil {
		t.Error("Expected error for empty passphrase")
	}
	if _, err := NewPassphraseKeyProvider("pass", nil).GetKey(); err == nil {
		t.Error("Expected error for missing salt")
	}
}

func TestGenerateSalt_Unique(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 16 {
		t.Errorf("salt length = %d, want 16", len(a))
	}
	if bytes.Equal(a, b) {
		t.Error("Expected unique salts")
	}
}

func TestGetDefaultKeyProvider_EnvFirst(t *testing.T) {
	t.Setenv(encryptionKeyEnvVar, testEncryptionKey)

	provider, err := GetDefaultKeyProvider()
	if err != nil {
		t.Fatalf("GetDefaultKeyProvider() error = %v", err)
	}
	if _, ok := provider.(*EnvKeyProvider); !ok {
		t.Errorf("Expected EnvKeyProvider, got %T", provider)
	}
}
