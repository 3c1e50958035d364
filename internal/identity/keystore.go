// Package identity gives a client process a stable anonymous device id and a
// backend session bound to it.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Persisted keys.
const (
	KeyDeviceID     = "device_id"
	KeySessionID    = "session_id"
	KeySessionToken = "session_token"
	// KeyPreviousSessionID outlives sign-out so the device can prove it
	// owns its id when it asks for a new session.
	KeyPreviousSessionID = "previous_session_id"
	KeyUsername     = "username"
	KeyAvatar       = "avatar"
)

// Keystore is durable string storage. Get returns "" for absent keys.
type Keystore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileKeystore keeps every key in one JSON file. Writes replace the file
// atomically so a crash never leaves it half written.
type FileKeystore struct {
	path string
	mu   sync.Mutex
}

// NewFileKeystore stores keys at path, creating parent directories on first write.
func NewFileKeystore(path string) *FileKeystore {
	return &FileKeystore{path: path}
}

// Path returns the backing file.
func (k *FileKeystore) Path() string {
	return k.path
}

func (k *FileKeystore) Get(key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	values, err := k.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (k *FileKeystore) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	values, err := k.load()
	if err != nil {
		return err
	}
	values[key] = value
	return k.save(values)
}

func (k *FileKeystore) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	values, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return k.save(values)
}

func (k *FileKeystore) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(k.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode keystore %s: %w", k.path, err)
	}
	return values, nil
}

func (k *FileKeystore) save(values map[string]string) error {
	dir := filepath.Dir(k.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return fmt.Errorf("create temp keystore: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), k.path)
}

// MemoryKeystore is a process-local Keystore.
type MemoryKeystore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{values: map[string]string{}}
}

func (k *MemoryKeystore) Get(key string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.values[key], nil
}

func (k *MemoryKeystore) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.values[key] = value
	return nil
}

func (k *MemoryKeystore) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.values, key)
	return nil
}
