package testutil

import (
	"context"
	"sync"

	"fitsync-go/internal/fitsync"
)

// StubStore wraps a RemoteStore and lets tests count, fail and hold
// individual operations. Operations are named "method:table", e.g.
// "select:profiles", "update:sets" or "call:search_new_crew".
type StubStore struct {
	inner fitsync.RemoteStore

	mu    sync.Mutex
	calls map[string]int
	fails map[string]error
	gates map[string]*Gate
}

var _ fitsync.RemoteStore = (*StubStore)(nil)

func NewStubStore(inner fitsync.RemoteStore) *StubStore {
	return &StubStore{
		inner: inner,
		calls: make(map[string]int),
		fails: make(map[string]error),
		gates: make(map[string]*Gate),
	}
}

// FailWith makes every later op return err. A nil err clears the failure.
func (s *StubStore) FailWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, op)
		return
	}
	s.fails[op] = err
}

// Hold blocks every later op until the returned gate is released or the
// call's context ends.
func (s *StubStore) Hold(op string) *Gate {
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.gates[op] = g
	s.mu.Unlock()
	return g
}

// Calls returns how many times op has been invoked.
func (s *StubStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of operations of any kind.
func (s *StubStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *StubStore) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	err := s.fails[op]
	g := s.gates[op]
	s.mu.Unlock()

	if g != nil {
		g.enteredOnce.Do(func() { close(g.entered) })
		select {
		case <-g.release:
		case <-ctx.Done():
			return &fitsync.RemoteError{Message: "canceling statement due to user request", Code: "57014", Cause: ctx.Err()}
		}
	}
	return err
}

func (s *StubStore) Select(ctx context.Context, q fitsync.Query) ([]fitsync.Row, error) {
	if err := s.enter(ctx, "select:"+q.Table); err != nil {
		return nil, err
	}
	return s.inner.Select(ctx, q)
}

func (s *StubStore) Single(ctx context.Context, q fitsync.Query) (fitsync.Row, error) {
	if err := s.enter(ctx, "single:"+q.Table); err != nil {
		return nil, err
	}
	return s.inner.Single(ctx, q)
}

func (s *StubStore) MaybeSingle(ctx context.Context, q fitsync.Query) (fitsync.Row, error) {
	if err := s.enter(ctx, "maybe:"+q.Table); err != nil {
		return nil, err
	}
	return s.inner.MaybeSingle(ctx, q)
}

func (s *StubStore) Insert(ctx context.Context, table string, row fitsync.Row) (fitsync.Row, error) {
	if err := s.enter(ctx, "insert:"+table); err != nil {
		return nil, err
	}
	return s.inner.Insert(ctx, table, row)
}

func (s *StubStore) Update(ctx context.Context, table string, patch fitsync.Row, filters ...fitsync.Filter) (fitsync.Row, error) {
	if err := s.enter(ctx, "update:"+table); err != nil {
		return nil, err
	}
	return s.inner.Update(ctx, table, patch, filters...)
}

func (s *StubStore) Upsert(ctx context.Context, table string, row fitsync.Row, conflictKey string) (fitsync.Row, error) {
	if err := s.enter(ctx, "upsert:"+table); err != nil {
		return nil, err
	}
	return s.inner.Upsert(ctx, table, row, conflictKey)
}

func (s *StubStore) Delete(ctx context.Context, table string, filters ...fitsync.Filter) error {
	if err := s.enter(ctx, "delete:"+table); err != nil {
		return err
	}
	return s.inner.Delete(ctx, table, filters...)
}

func (s *StubStore) Call(ctx context.Context, procedure string, args fitsync.Row) ([]fitsync.Row, error) {
	if err := s.enter(ctx, "call:"+procedure); err != nil {
		return nil, err
	}
	return s.inner.Call(ctx, procedure, args)
}

// Gate holds calls until released.
type Gate struct {
	entered     chan struct{}
	enteredOnce sync.Once
	release     chan struct{}
	releaseOnce sync.Once
}

// Entered is closed once the first held call arrives.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets held and future calls through. Idempotent.
func (g *Gate) Release() {
	g.releaseOnce.Do(func() { close(g.release) })
}
