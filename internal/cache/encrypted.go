package cache

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"fitsync-go/internal/fitsync"
)

// ErrLocked is returned when reading an encrypted cache before Unlock.
var ErrLocked = errors.New("cache is locked")

// EncryptedStore seals every value before handing it to the wrapped store.
// Writing needs only the public key; reading needs the private key, unlocked
// once per session.
type EncryptedStore struct {
	inner     fitsync.LocalStore
	encryptor fitsync.Encryptor

	mu     sync.RWMutex
	opener fitsync.Opener
}

func NewEncryptedStore(inner fitsync.LocalStore, encryptor fitsync.Encryptor) *EncryptedStore {
	return &EncryptedStore{inner: inner, encryptor: encryptor}
}

// Unlock decrypts the private key with passphrase for this session.
func (e *EncryptedStore) Unlock(passphrase string) error {
	opener, err := e.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking cache: %w", err)
	}
	e.mu.Lock()
	e.opener = opener
	e.mu.Unlock()
	return nil
}

// Unlocked reports whether values can be read.
func (e *EncryptedStore) Unlocked() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opener != nil
}

func (e *EncryptedStore) Get(key string) (string, bool, error) {
	raw, ok, err := e.inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}
	e.mu.RLock()
	opener := e.opener
	e.mu.RUnlock()
	if opener == nil {
		return "", false, ErrLocked
	}

	sealed, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", false, fmt.Errorf("decoding %s: %w", key, err)
	}
	plain, err := opener.Open(sealed)
	if err != nil {
		return "", false, fmt.Errorf("decrypting %s: %w", key, err)
	}
	return string(plain), true, nil
}

func (e *EncryptedStore) Set(key, value string) error {
	sealed, err := e.encryptor.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	return e.inner.Set(key, base64.StdEncoding.EncodeToString(sealed))
}

func (e *EncryptedStore) Remove(key string) error {
	return e.inner.Remove(key)
}

func (e *EncryptedStore) Close() error {
	return e.inner.Close()
}

var _ fitsync.LocalStore = (*EncryptedStore)(nil)
