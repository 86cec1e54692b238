package fitsync

// LocalStore is persistent key-value storage on the device.
// Values are opaque strings; CacheStore owns their encoding.
type LocalStore interface {
	// Get returns the value for key, or false when nothing is stored.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key succeeds.
	Remove(key string) error

	// Close releases the store.
	Close() error
}

// Encryptor protects cached snapshots at rest. Sealing uses the public key
// only; opening requires a passphrase to unlock the private key for the
// session.
type Encryptor interface {
	// GenerateKey creates a key pair, storing the private key encrypted with
	// passphrase.
	GenerateKey(passphrase string) error

	// Seal encrypts plaintext.
	Seal(plaintext []byte) ([]byte, error)

	// Unlock decrypts the private key and returns an Opener for the session.
	Unlock(passphrase string) (Opener, error)

	// IsConfigured reports whether a key pair exists.
	IsConfigured() bool
}

// Opener decrypts payloads produced by Encryptor.Seal. The unlocked key is
// held in memory only.
type Opener interface {
	Open(ciphertext []byte) ([]byte, error)
}

// discardLocal stores nothing; accessors built without a cache use it.
type discardLocal struct{}

func (discardLocal) Get(string) (string, bool, error) { return "", false, nil }
func (discardLocal) Set(string, string) error         { return nil }
func (discardLocal) Remove(string) error              { return nil }
func (discardLocal) Close() error                     { return nil }
