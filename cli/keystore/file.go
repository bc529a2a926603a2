package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
)

// File layout: [magic (4)] [version (1)] [salt (16)] [nonce (12)] [ciphertext].
// The header is authenticated as additional data.
const (
	magicHeader   = "OAIK"
	formatVersion = byte(0x01)
	saltLength    = 16
	nonceLength   = 12
	headerLength  = len(magicHeader) + 1 + saltLength + nonceLength
)

// Argon2id parameters (OWASP recommended).
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

var (
	// ErrCorrupt is returned when the keystore file is not in a known format.
	ErrCorrupt = errors.New("keystore: unrecognized file format")
	// ErrDecrypt is returned when the file cannot be opened with the master key.
	ErrDecrypt = errors.New("keystore: decryption failed (wrong passphrase?)")
)

// MasterKeySource supplies the secret the file encryption key is derived from.
type MasterKeySource interface {
	MasterKey() ([]byte, error)
}

// Passphrase is a MasterKeySource backed by a user-chosen passphrase.
type Passphrase string

// MasterKey returns the passphrase bytes.
func (p Passphrase) MasterKey() ([]byte, error) {
	if p == "" {
		return nil, errors.New("keystore: empty passphrase")
	}
	return []byte(p), nil
}

// MachineKey derives a master key from the hostname and user name. It keeps
// keys off disk in plaintext but is predictable to anyone on the same machine.
type MachineKey struct{}

// MasterKey hashes host and user into a 32-byte key.
func (MachineKey) MasterKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(hostname + ":" + username + ":oai-keystore"))
	return sum[:], nil
}

// FileKeystore implements Keystore as a JSON map encrypted with AES-256-GCM
// under a key derived from the master key with Argon2id.
type FileKeystore struct {
	path      string
	masterKey []byte
	mu        sync.RWMutex
}

// NewFileKeystore creates a keystore at path using the machine-derived key.
func NewFileKeystore(path string) (*FileKeystore, error) {
	return NewFileKeystoreWithSource(path, MachineKey{})
}

// NewFileKeystoreWithSource creates a keystore at path with the given master key source.
func NewFileKeystoreWithSource(path string, source MasterKeySource) (*FileKeystore, error) {
	key, err := source.MasterKey()
	if err != nil {
		return nil, err
	}
	return &FileKeystore{path: path, masterKey: key}, nil
}

// Path returns the file backing the keystore.
func (f *FileKeystore) Path() string {
	return f.path
}

// Set stores a key-value pair.
func (f *FileKeystore) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	data[name] = value
	return f.save(data)
}

// Get retrieves a value by name.
func (f *FileKeystore) Get(name string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := data[name]
	if !ok {
		return "", &ErrKeyNotFound{Name: name}
	}
	return value, nil
}

// Delete removes a key by name.
func (f *FileKeystore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := data[name]; !ok {
		return &ErrKeyNotFound{Name: name}
	}
	delete(data, name)
	return f.save(data)
}

// List returns all stored key names.
func (f *FileKeystore) List() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileKeystore) load() (map[string]string, error) {
	data := make(map[string]string)

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return data, nil
	}

	plaintext, err := f.decrypt(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("keystore: decode: %w", err)
	}
	return data, nil
}

func (f *FileKeystore) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	plaintext, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ciphertext, err := f.encrypt(plaintext)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, ciphertext, 0o600)
}

func (f *FileKeystore) gcm(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.masterKey, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileKeystore) encrypt(plaintext []byte) ([]byte, error) {
	header := make([]byte, 0, headerLength)
	header = append(header, magicHeader...)
	header = append(header, formatVersion)

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	header = append(header, salt...)
	header = append(header, nonce...)

	aead, err := f.gcm(salt)
	if err != nil {
		return nil, err
	}
	return aead.Seal(header, nonce, plaintext, header), nil
}

func (f *FileKeystore) decrypt(raw []byte) ([]byte, error) {
	if len(raw) < headerLength || string(raw[:len(magicHeader)]) != magicHeader || raw[len(magicHeader)] != formatVersion {
		return nil, ErrCorrupt
	}
	offset := len(magicHeader) + 1
	salt := raw[offset : offset+saltLength]
	offset += saltLength
	nonce := raw[offset : offset+nonceLength]
	header := raw[:headerLength]

	aead, err := f.gcm(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, raw[headerLength:], header)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

var _ Keystore = (*FileKeystore)(nil)
