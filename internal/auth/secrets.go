// Package auth stores the shared ingestion secret in the OS keyring,
// falling back to a private file where no keyring is reachable.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "adscout"
	// FallbackDir is the directory for file-based storage (when keyring fails)
	FallbackDir = ".adscout/secrets"
	// DefaultSecretName names the ingestion API secret
	DefaultSecretName = "scraper-api"
)

// ErrSecretNotFound is returned when no secret is stored under a name
var ErrSecretNotFound = errors.New("secret not found")

// storedSecret is the on-disk shape of a file-backed secret
type storedSecret struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// SecretStore reads and writes named secrets. With UseFile set, secrets live
// as 0600 JSON files under Dir instead of the keyring.
type SecretStore struct {
	UseFile bool
	Dir     string
}

// DefaultStore picks the keyring when it is usable and ~/.adscout/secrets otherwise.
func DefaultStore() *SecretStore {
	s := &SecretStore{UseFile: useFileBasedStorage()}
	if home, err := os.UserHomeDir(); err == nil {
		s.Dir = filepath.Join(home, FallbackDir)
	}
	return s
}

// useFileBasedStorage checks if we should use file-based storage
// This is a fallback for environments where keyring isn't available (Codespaces, CI)
func useFileBasedStorage() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return true
	}

	testKey := "_test_keyring_access_"
	if err := keyring.Set(KeyringService, testKey, "test"); err != nil {
		return true
	}
	keyring.Delete(KeyringService, testKey)
	return false
}

func (s *SecretStore) path(name string) (string, error) {
	if s.Dir == "" {
		return "", fmt.Errorf("no secrets directory configured")
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, name+".json"), nil
}

// Save stores value under name
func (s *SecretStore) Save(name, value string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	if value == "" {
		return fmt.Errorf("secret value cannot be empty")
	}

	if !s.UseFile {
		if err := keyring.Set(KeyringService, name, value); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		return nil
	}

	path, err := s.path(name)
	if err != nil {
		return fmt.Errorf("failed to get secret path: %w", err)
	}
	data, err := json.Marshal(storedSecret{Name: name, Value: value, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to serialize secret: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save secret file: %w", err)
	}
	return nil
}

// Load returns the secret stored under name, or ErrSecretNotFound
func (s *SecretStore) Load(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}

	if !s.UseFile {
		value, err := keyring.Get(KeyringService, name)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to load from keyring: %w", err)
		}
		return value, nil
	}

	path, err := s.path(name)
	if err != nil {
		return "", fmt.Errorf("failed to get secret path: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load secret file: %w", err)
	}
	var stored storedSecret
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("failed to deserialize secret: %w", err)
	}
	return stored.Value, nil
}

// Delete removes the secret stored under name. Deleting a missing secret is not an error.
func (s *SecretStore) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}

	if !s.UseFile {
		err := keyring.Delete(KeyringService, name)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete from keyring: %w", err)
		}
		return nil
	}

	path, err := s.path(name)
	if err != nil {
		return fmt.Errorf("failed to get secret path: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete secret file: %w", err)
	}
	return nil
}

// SaveSecret stores the ingestion secret in the default store
func SaveSecret(value string) error {
	return DefaultStore().Save(DefaultSecretName, value)
}

// LoadSecret reads the ingestion secret from the default store
func LoadSecret() (string, error) {
	return DefaultStore().Load(DefaultSecretName)
}

// DeleteSecret removes the ingestion secret from the default store
func DeleteSecret() error {
	return DefaultStore().Delete(DefaultSecretName)
}
