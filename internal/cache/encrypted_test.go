package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitsync-go/internal/encryption"
	"fitsync-go/internal/fitsync"
)

func newUnlockedStore(t *testing.T) (*EncryptedStore, *MemoryStore) {
	t.Helper()
	inner := NewMemoryStore()
	enc := encryption.NewTestEncryptor()
	require.NoError(t, enc.GenerateKey("pass"))
	s := NewEncryptedStore(inner, enc)
	require.NoError(t, s.Unlock("pass"))
	return s, inner
}

func TestEncryptedStore(t *testing.T) {
	exerciseStore(t, func(t *testing.T) fitsync.LocalStore {
		s, _ := newUnlockedStore(t)
		return s
	})
}

func TestEncryptedStore_InnerValueIsSealed(t *testing.T) {
	s, inner := newUnlockedStore(t)
	require.NoError(t, s.Set("profile_cache", "plain profile"))

	raw, ok, err := inner.Get("profile_cache")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "plain profile")
}

func TestEncryptedStore_LockedRead(t *testing.T) {
	inner := NewMemoryStore()
	s := NewEncryptedStore(inner, encryption.NewTestEncryptor())
	assert.False(t, s.Unlocked())

	// Writing needs no private key.
	require.NoError(t, s.Set("profile_cache", "v"))

	_, ok, err := s.Get("profile_cache")
	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, ok)

	// A missing key is a plain miss even while locked.
	_, ok, err = s.Get("absent")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptedStore_WrongPassphrase(t *testing.T) {
	enc := encryption.NewTestEncryptor()
	require.NoError(t, enc.GenerateKey("right"))
	s := NewEncryptedStore(NewMemoryStore(), enc)
	assert.Error(t, s.Unlock("wrong"))
	assert.False(t, s.Unlocked())
}

func TestEncryptedStore_CorruptValue(t *testing.T) {
	s, inner := newUnlockedStore(t)
	require.NoError(t, inner.Set("profile_cache", "not base64 !!"))
	_, ok, err := s.Get("profile_cache")
	assert.Error(t, err)
	assert.False(t, ok)
}
