package fitsync

import (
	"context"
	"sync"
)

// handle owns an accessor's state lock and ties its in-flight work to the
// accessor's lifetime.
//
// Every fetch and mutation is issued a monotonically increasing token.
// Authoritative writes (server data) record their token as landed; any write
// carrying a token at or below the landed one is discarded. A cache paint
// racing a fetch therefore never overwrites fresher server data.
//
// Confirmed mutations that touch single records go through patch instead.
// A patch never supersedes a load: while loads are in flight it is kept, and
// a load that lands replays every patch newer than its own token over its
// result. Patches must therefore be idempotent. After close every write is a
// no-op.
type handle struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	issued   uint64
	landed   uint64
	inflight int
	patches  []patch
	watchers []func()
}

type patch struct {
	token uint64
	apply func()
}

func newHandle() *handle {
	ctx, cancel := context.WithCancel(context.Background())
	return &handle{ctx: ctx, cancel: cancel}
}

// bind derives a context that is also canceled when the handle closes.
func (h *handle) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(h.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (h *handle) token() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issued++
	return h.issued
}

// startLoad issues a token and marks a load in flight.
func (h *handle) startLoad() uint64 {
	h.mu.Lock()
	h.issued++
	t := h.issued
	h.inflight++
	h.mu.Unlock()
	h.notify()
	return t
}

func (h *handle) endLoad() {
	h.mu.Lock()
	if h.inflight > 0 {
		h.inflight--
	}
	if h.inflight == 0 {
		h.patches = nil
	}
	h.mu.Unlock()
	h.notify()
}

// commit runs apply under the state lock unless the handle is closed or a
// write with a newer token has landed. It reports whether apply ran.
func (h *handle) commit(token uint64, authoritative bool, apply func()) bool {
	h.mu.Lock()
	if h.closed || token <= h.landed {
		h.mu.Unlock()
		return false
	}
	if authoritative {
		h.landed = token
	}
	apply()
	if authoritative {
		for _, p := range h.patches {
			if p.token > token {
				p.apply()
			}
		}
	}
	h.mu.Unlock()
	h.notify()
	return true
}

// patch runs apply under the state lock now, and again over the result of
// any load in flight that lands later. It reports whether apply ran.
func (h *handle) patch(apply func()) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.issued++
	apply()
	if h.inflight > 0 {
		h.patches = append(h.patches, patch{token: h.issued, apply: apply})
	}
	h.mu.Unlock()
	h.notify()
	return true
}

// read runs fn under the state lock. fn receives whether a load is in flight.
func (h *handle) read(fn func(loading bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.inflight > 0)
}

func (h *handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *handle) watch(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.watchers = append(h.watchers, fn)
	}
}

func (h *handle) notify() {
	h.mu.Lock()
	watchers := append([]func(){}, h.watchers...)
	h.mu.Unlock()
	for _, fn := range watchers {
		fn()
	}
}

// close cancels in-flight work and drops watchers. Idempotent.
func (h *handle) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.watchers = nil
	h.mu.Unlock()
	h.cancel()
}
