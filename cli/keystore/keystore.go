// Package keystore stores API keys for the oai CLI in an encrypted file.
package keystore

import (
	"os"
	"path/filepath"
	"runtime"
)

// Keystore defines the interface for secure key storage.
type Keystore interface {
	// Set stores a key-value pair.
	Set(name, value string) error
	// Get retrieves a value by name. Returns *ErrKeyNotFound if absent.
	Get(name string) (string, error)
	// Delete removes a key by name.
	Delete(name string) error
	// List returns all stored key names, sorted.
	List() ([]string, error)
}

// ErrKeyNotFound is returned when a requested key does not exist.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Name
}

// PassphraseEnvVar overrides the machine-derived master key when set.
const PassphraseEnvVar = "OAI_KEYSTORE_PASSPHRASE"

// DefaultKeystorePath returns the default keystore file path.
//   - macOS/Linux: ~/.oai/keys.enc
//   - Windows: %USERPROFILE%\.oai\keys.enc
func DefaultKeystorePath() string {
	home := homeDir()
	if home == "" {
		return "keys.enc"
	}
	return filepath.Join(home, ".oai", "keys.enc")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// NewKeystore opens the keystore at the default path. The master key comes
// from OAI_KEYSTORE_PASSPHRASE, falling back to machine-derived material.
func NewKeystore() (Keystore, error) {
	var source MasterKeySource = MachineKey{}
	if pass := os.Getenv(PassphraseEnvVar); pass != "" {
		source = Passphrase(pass)
	}
	return NewFileKeystoreWithSource(DefaultKeystorePath(), source)
}
