package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// testEncryptionKey is a fixed 32-byte key for testing (hex-encoded to 64 chars)
const testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// newTestStore builds a store rooted in a temp dir with a fixed env key.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	t.Setenv("SESSIONARC_CONFIG_DIR", t.TempDir())
	t.Setenv(encryptionKeyEnvVar, testEncryptionKey)

	store, err := NewStoreWithKeyProvider(NewEnvKeyProvider(encryptionKeyEnvVar))
	if err != nil {
		t.Fatalf("NewStoreWithKeyProvider() error = %v", err)
	}
	return store
}

func TestCredentialsDir_EnvOverride(t *testing.T) {
	t.Setenv("SESSIONARC_CONFIG_DIR", "/tmp/arc-creds")

	dir, err := CredentialsDir()
	if err != nil {
		t.Fatalf("CredentialsDir() error = %v", err)
	}
	if dir != "/tmp/arc-creds" {
		t.Errorf("CredentialsDir() = %v, want /tmp/arc-creds", dir)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	creds := &Credentials{
		AccountID:    "acct-1",
		ClientID:     "client-abc",
		ClientSecret: "super-secret",
		AccessToken:  "cached-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	if err := store.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.AccountID != "acct-1" {
		t.Errorf("AccountID = %v", loaded.AccountID)
	}
	if loaded.ClientSecret != "super-secret" {
		t.Errorf("ClientSecret = %v, want plaintext round trip", loaded.ClientSecret)
	}
	if loaded.AccessToken != "cached-token" {
		t.Errorf("AccessToken = %v", loaded.AccessToken)
	}
	if loaded.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set on save")
	}
}

func TestSave_EncryptsSensitiveFieldsAtRest(t *testing.T) {
	store := newTestStore(t)

	creds := &Credentials{
		AccountID:    "acct-1",
		ClientID:     "client-abc",
		ClientSecret: "super-secret",
		AccessToken:  "cached-token",
	}
	if err := store.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(store.credentialsDir, DefaultCredentialsFile))
	if err != nil {
		t.Fatal(err)
	}

	var onDisk Credentials
	if err := yaml.Unmarshal(raw, &onDisk); err != nil {
		t.Fatal(err)
	}

	if onDisk.ClientSecret == "super-secret" {
		t.Error("ClientSecret stored in plaintext")
	}
	if onDisk.AccessToken == "cached-token" {
		t.Error("AccessToken stored in plaintext")
	}
	if strings.Contains(string(raw), "super-secret") {
		t.Error("Raw file contains plaintext secret")
	}
	// Non-sensitive identifiers stay readable.
	if onDisk.AccountID != "acct-1" || onDisk.ClientID != "client-abc" {
		t.Error("Account and client IDs should not be encrypted")
	}
}

func TestLoad_NoCredentials(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Load(); err != ErrNoCredentials {
		t.Errorf("Load() error = %v, want ErrNoCredentials", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&Credentials{AccountID: "acct-1"}); err != nil {
		t.Fatal(err)
	}
	if !store.Exists() {
		t.Fatal("Expected credentials to exist after save")
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Exists() {
		t.Error("Expected credentials gone after delete")
	}

	// Deleting again is a no-op.
	if err := store.Delete(); err != nil {
		t.Errorf("Second Delete() error = %v", err)
	}
}

func TestGetActiveCredential_EnvWins(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&Credentials{AccountID: "stored-acct", ClientID: "stored", ClientSecret: "stored"}); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SESSIONARC_ACCOUNT_ID", "env-acct")
	t.Setenv("SESSIONARC_CLIENT_ID", "env-client")
	t.Setenv("SESSIONARC_CLIENT_SECRET", "env-secret")

	creds, err := store.GetActiveCredential()
	if err != nil {
		t.Fatalf("GetActiveCredential() error = %v", err)
	}
	if creds.AccountID != "env-acct" {
		t.Errorf("AccountID = %v, want env value", creds.AccountID)
	}
}

func TestGetActiveCredential_FallsBackToStore(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&Credentials{AccountID: "stored-acct", ClientID: "c", ClientSecret: "s"}); err != nil {
		t.Fatal(err)
	}

	creds, err := store.GetActiveCredential()
	if err != nil {
		t.Fatalf("GetActiveCredential() error = %v", err)
	}
	if creds.AccountID != "stored-acct" {
		t.Errorf("AccountID = %v, want stored value", creds.AccountID)
	}
}

func TestTokenValid(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"valid", Credentials{AccessToken: "t", ExpiresAt: time.Now().Add(time.Hour)}, true},
		{"expired", Credentials{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Hour)}, false},
		{"no token", Credentials{ExpiresAt: time.Now().Add(time.Hour)}, false},
		{"no expiry", Credentials{AccessToken: "t"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.creds.TokenValid(); got != tc.want {
				t.Errorf("TokenValid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	store := newTestStore(t)

	for _, plaintext := range []string{"a", "longer secret value with spaces", ""} {
		if plaintext == "" {
			continue
		}
		encrypted, err := store.encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt(%q) error = %v", plaintext, err)
		}
		if encrypted == plaintext {
			t.Errorf("encrypt(%q) returned plaintext", plaintext)
		}
		decrypted, err := store.decrypt(encrypted)
		if err != nil {
			t.Fatalf("decrypt error = %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip = %q, want %q", decrypted, plaintext)
		}
	}
}

func TestDecrypt_InvalidInput(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.decrypt("not base64!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := store.decrypt("c2hvcnQ="); err == nil {
		t.Error("Expected error for truncated ciphertext")
	}
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short", "*****"},
		{"12345678", "********"},
		{"abcdefghijkl", "abcd****ijkl"},
	}

	for _, tc := range tests {
		if got := MaskCredential(tc.in); got != tc.want {
			t.Errorf("MaskCredential(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskToken(t *testing.T) {
	short := MaskToken("tiny")
	if short != "****" {
		t.Errorf("MaskToken(short) = %q", short)
	}

	long := MaskToken("abcdefghijklmnopqrstuvwxyz")
	if long != "abcdefgh...stuvwxyz" {
		t.Errorf("MaskToken(long) = %q", long)
	}
}

func TestFormatExpiry(t *testing.T) {
	if FormatExpiry(time.Time{}) != "never" {
		t.Error("Expected 'never' for zero time")
	}
	if FormatExpiry(time.Now().Add(-time.Minute)) != "expired" {
		t.Error("Expected 'expired' for past time")
	}
	if got := FormatExpiry(time.Now().Add(30 * time.Minute)); !strings.Contains(got, "minutes") {
		t.Errorf("FormatExpiry(30m) = %q", got)
	}
	if got := FormatExpiry(time.Now().Add(5 * time.Hour)); !strings.Contains(got, "hours") {
		t.Errorf("FormatExpiry(5h) = %q", got)
	}
	if got := FormatExpiry(time.Now().Add(72 * time.Hour)); !strings.Contains(got, "days") {
		t.Errorf("FormatExpiry(72h) = %q", got)
	}
}

func TestCredentialFingerprint(t *testing.T) {
	a := CredentialFingerprint("secret-a")
	b := CredentialFingerprint("secret-b")

	if len(a) != 8 {
		t.Errorf("Fingerprint length = %d, want 8 hex chars", len(a))
	}
	if a == b {
		t.Error("Different secrets must not share a fingerprint")
	}
	if a != CredentialFingerprint("secret-a") {
		t.Error("Fingerprint must be stable")
	}
}
