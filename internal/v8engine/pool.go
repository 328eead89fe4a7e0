package v8engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cryguy/jsbridge/internal/core"
	"go.uber.org/zap"
)

var errPoolClosed = errors.New("runtime pool is closed")

// SetupFunc prepares a pooled runtime, typically by installing host objects
// on its global object.
type SetupFunc func(rt *Runtime) error

// Pool manages a fixed-size pool of pre-warmed runtimes. A runtime taken
// with Get belongs to the caller's goroutine until it is handed back with Put.
type Pool struct {
	runtimes chan *Runtime
	size     int
	mu       sync.Mutex
	closed   bool
}

// NewPool creates cfg.PoolSize runtimes (at least one) and runs every setup
// function on each of them.
func NewPool(cfg core.Config, setupFns ...SetupFunc) (*Pool, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 1
	}
	pool := &Pool{
		runtimes: make(chan *Runtime, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		rt, err := newPooledRuntime(cfg, setupFns)
		if err != nil {
			pool.Dispose()
			return nil, fmt.Errorf("creating pool runtime %d: %w", i, err)
		}
		pool.runtimes <- rt
	}

	return pool, nil
}

func newPooledRuntime(cfg core.Config, setupFns []SetupFunc) (*Runtime, error) {
	rt, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for _, setup := range setupFns {
		if err := setup(rt); err != nil {
			rt.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return rt, nil
}

// Get acquires a runtime from the pool. Blocks until one is available or ctx is done.
func (p *Pool) Get(ctx context.Context) (*Runtime, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errPoolClosed
	}
	select {
	case rt := <-p.runtimes:
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a runtime to the pool after dropping its pending async calls
// and timers and collecting released objects. Runtimes returned to a
// disposed or full pool are closed.
func (p *Pool) Put(rt *Runtime) {
	if rt.closed {
		return
	}
	if pending := rt.Pending(); pending > 0 {
		rt.log.Debug("dropping unsettled async calls", zap.Int("pending", pending))
	}
	rt.reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		rt.Close()
		return
	}
	select {
	case p.runtimes <- rt:
	default:
		rt.Close()
	}
}

// Size returns the number of runtimes the pool was created with.
func (p *Pool) Size() int { return p.size }

// Dispose closes all idle runtimes. Runtimes still checked out are closed
// when they are Put back.
func (p *Pool) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for {
		select {
		case rt := <-p.runtimes:
			rt.Close()
		default:
			return
		}
	}
}
