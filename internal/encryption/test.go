package encryption

import (
	"bytes"
	"fmt"

	"fitsync-go/internal/fitsync"
)

// testHeader is prepended by TestEncryptor so sealed output differs from
// plaintext while staying deterministic and reversible.
var testHeader = []byte("FSENC\x00\x00\x00")

// TestEncryptor is a deterministic, crypto-free encryptor for tests. Unlock
// succeeds only with the passphrase given to GenerateKey.
type TestEncryptor struct {
	passphrase string
	configured bool
}

var _ fitsync.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) GenerateKey(passphrase string) error {
	e.passphrase = passphrase
	e.configured = true
	return nil
}

func (e *TestEncryptor) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, 0, len(testHeader)+len(plaintext))
	out = append(out, testHeader...)
	return append(out, plaintext...), nil
}

func (e *TestEncryptor) Unlock(passphrase string) (fitsync.Opener, error) {
	if e.configured && passphrase != e.passphrase {
		return nil, fmt.Errorf("incorrect passphrase")
	}
	return TestOpener{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

// TestOpener strips the header added by TestEncryptor.
type TestOpener struct{}

var _ fitsync.Opener = TestOpener{}

func (TestOpener) Open(ciphertext []byte) ([]byte, error) {
	if !bytes.HasPrefix(ciphertext, testHeader) {
		return nil, fmt.Errorf("invalid test encryption header")
	}
	return bytes.Clone(ciphertext[len(testHeader):]), nil
}
