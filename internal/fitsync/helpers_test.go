package fitsync_test

import (
	"sync"
	"testing"
	"time"

	"fitsync-go/internal/fitsync"
)

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// blockingLocal holds Get calls for one key until released.
type blockingLocal struct {
	fitsync.LocalStore
	key string

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingLocal(inner fitsync.LocalStore, key string) *blockingLocal {
	return &blockingLocal{
		LocalStore: inner,
		key:        key,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (b *blockingLocal) Get(key string) (string, bool, error) {
	if key == b.key {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.LocalStore.Get(key)
}

func strPtr(s string) *string { return &s }
