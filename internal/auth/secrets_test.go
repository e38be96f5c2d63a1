package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSecretStore_File(t *testing.T) {
	s := &SecretStore{UseFile: true, Dir: filepath.Join(t.TempDir(), "secrets")}

	if _, err := s.Load("api"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
	if err := s.Save("api", "s3cret"); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(filepath.Join(s.Dir, "api.json"))
	if err != nil {
		t.Fatalf("secret file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("secret file mode = %v", perm)
	}

	got, err := s.Load("api")
	if err != nil || got != "s3cret" {
		t.Errorf("load = %q, %v", got, err)
	}

	if err := s.Delete("api"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("api"); err != nil {
		t.Errorf("deleting twice should be a no-op, got %v", err)
	}
	if _, err := s.Load("api"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected ErrSecretNotFound after delete, got %v", err)
	}
}

func TestSecretStore_Keyring(t *testing.T) {
	keyring.MockInit()
	s := &SecretStore{}

	if err := s.Save("api", "from-keyring"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load("api")
	if err != nil || got != "from-keyring" {
		t.Errorf("load = %q, %v", got, err)
	}
	if err := s.Delete("api"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load("api"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSecretStore_RejectsEmpty(t *testing.T) {
	s := &SecretStore{UseFile: true, Dir: t.TempDir()}
	if err := s.Save("", "x"); err == nil {
		t.Error("expected error for empty name")
	}
	if err := s.Save("api", ""); err == nil {
		t.Error("expected error for empty value")
	}
}
