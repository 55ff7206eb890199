package index

import (
	"sync"
	"time"
)

// LazyPool manages a single catalog connection with lazy-close behavior.
// The connection stays open for an idle timeout so bursts of re-indexing
// reuse it, then closes to release the DuckDB file lock for other
// processes.
type LazyPool struct {
	path    string
	conn    *DB
	timer   *time.Timer
	timeout time.Duration
	mu      sync.Mutex
}

// NewLazyPool creates a pool for the catalog at path. The connection closes
// after idleTimeout without an Acquire.
func NewLazyPool(path string, idleTimeout time.Duration) *LazyPool {
	return &LazyPool{
		path:    path,
		timeout: idleTimeout,
	}
}

// Acquire returns the open connection or opens a new one, cancelling any
// pending idle close. Every Acquire needs a matching Release.
func (p *LazyPool) Acquire() (*DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	if p.conn != nil {
		return p.conn, nil
	}

	conn, err := Open(p.path)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

// Release schedules the connection to close after the idle timeout.
func (p *LazyPool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return
	}

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.timeout, func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.conn != nil {
			p.conn.Close()
			p.conn = nil
		}
		p.timer = nil
	})
}

// Close immediately closes any open connection and cancels pending timers.
func (p *LazyPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
