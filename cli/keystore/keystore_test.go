package keystore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newTestKeystore(t *testing.T) (*FileKeystore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.enc")
	ks, err := NewFileKeystoreWithSource(path, Passphrase("test-passphrase"))
	if err != nil {
		t.Fatalf("NewFileKeystoreWithSource() error = %v", err)
	}
	return ks, path
}

func TestFileKeystoreSetAndGet(t *testing.T) {
	ks, _ := newTestKeystore(t)

	if err := ks.Set("openai", "sk-test-key-12345"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, err := ks.Get("openai")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "sk-test-key-12345" {
		t.Errorf("Get() = %q, want sk-test-key-12345", value)
	}
}

func TestFileKeystoreGetNotFound(t *testing.T) {
	ks, _ := newTestKeystore(t)

	_, err := ks.Get("nonexistent")
	var notFound *ErrKeyNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("Get() error = %v, want *ErrKeyNotFound", err)
	}
}

func TestFileKeystoreDelete(t *testing.T) {
	ks, _ := newTestKeystore(t)

	if err := ks.Set("openai", "sk-test"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := ks.Delete("openai"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := ks.Get("openai"); err == nil {
		t.Error("Get() after Delete() returned no error")
	}

	var notFound *ErrKeyNotFound
	if err := ks.Delete("openai"); !errors.As(err, &notFound) {
		t.Errorf("second Delete() error = %v, want *ErrKeyNotFound", err)
	}
}

func TestFileKeystoreListSorted(t *testing.T) {
	ks, _ := newTestKeystore(t)

	names, err := ks.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() on empty keystore = %v", names)
	}

	for _, name := range []string{"openai", "azure", "local"} {
		if err := ks.Set(name, "k-"+name); err != nil {
			t.Fatalf("Set(%q) error = %v", name, err)
		}
	}
	names, err = ks.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"azure", "local", "openai"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFileKeystoreOverwrite(t *testing.T) {
	ks, _ := newTestKeystore(t)

	_ = ks.Set("openai", "original-key")
	if err := ks.Set("openai", "updated-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if value, _ := ks.Get("openai"); value != "updated-key" {
		t.Errorf("Get() = %q, want updated-key", value)
	}
}

func TestFileKeystorePersistence(t *testing.T) {
	ks1, path := newTestKeystore(t)
	if err := ks1.Set("openai", "persistent-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	ks2, err := NewFileKeystoreWithSource(path, Passphrase("test-passphrase"))
	if err != nil {
		t.Fatalf("NewFileKeystoreWithSource() error = %v", err)
	}
	value, err := ks2.Get("openai")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "persistent-key" {
		t.Errorf("Get() = %q, want persistent-key", value)
	}
}

func TestFileKeystoreWrongPassphrase(t *testing.T) {
	ks, path := newTestKeystore(t)
	if err := ks.Set("openai", "sk-secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	other, err := NewFileKeystoreWithSource(path, Passphrase("different"))
	if err != nil {
		t.Fatalf("NewFileKeystoreWithSource() error = %v", err)
	}
	if _, err := other.Get("openai"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Get() error = %v, want ErrDecrypt", err)
	}
}

func TestFileKeystoreRejectsUnknownFormat(t *testing.T) {
	ks, path := newTestKeystore(t)
	if err := os.WriteFile(path, []byte(`{"openai":"sk-plain"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ks.List(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("List() error = %v, want ErrCorrupt", err)
	}
}

func TestFileKeystoreTamperDetected(t *testing.T) {
	ks, path := newTestKeystore(t)
	if err := ks.Set("openai", "sk-secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ks.Get("openai"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Get() error = %v, want ErrDecrypt", err)
	}
}

func TestFileKeystoreFileLayout(t *testing.T) {
	ks, path := newTestKeystore(t)
	secret := "sk-this-should-be-encrypted"
	if err := ks.Set("openai", secret); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.HasPrefix(contents, []byte(magicHeader)) || contents[len(magicHeader)] != formatVersion {
		t.Errorf("file header = %q, want %q v%d", contents[:len(magicHeader)+1], magicHeader, formatVersion)
	}
	if bytes.Contains(contents, []byte(secret)) {
		t.Error("file contains plaintext key")
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if mode := info.Mode().Perm(); mode != 0o600 {
			t.Errorf("file permissions = %o, want 0600", mode)
		}
	}
}

func TestFileKeystoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "keys.enc")
	ks, err := NewFileKeystore(path)
	if err != nil {
		t.Fatalf("NewFileKeystore() error = %v", err)
	}
	if err := ks.Set("test", "value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestPassphraseEmpty(t *testing.T) {
	if _, err := NewFileKeystoreWithSource("keys.enc", Passphrase("")); err == nil {
		t.Error("NewFileKeystoreWithSource() with empty passphrase returned no error")
	}
}

func TestDefaultKeystorePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	want := filepath.Join(home, ".oai", "keys.enc")
	if got := DefaultKeystorePath(); got != want {
		t.Errorf("DefaultKeystorePath() = %q, want %q", got, want)
	}
}

func TestErrKeyNotFoundError(t *testing.T) {
	err := &ErrKeyNotFound{Name: "openai"}
	if msg := err.Error(); msg != "key not found: openai" {
		t.Errorf("Error() = %q", msg)
	}
}
