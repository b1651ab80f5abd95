package runtime

import (
	"context"
	"errors"
	"time"

	cfgpkg "github.com/PenteractAI/python-practice-platform/internal/config"
	"github.com/PenteractAI/python-practice-platform/internal/locks"
	"github.com/PenteractAI/python-practice-platform/internal/queue"
	pebblestore "github.com/PenteractAI/python-practice-platform/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Runtime wires durable storage, config, queues, and the lock manager for
// a single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
	locks  *locks.Manager
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval})
	if err != nil {
		return nil, err
	}
	return &Runtime{db: db, config: opts.Config, locks: locks.NewManager(db)}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check against the storage layer.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// OpenQueue opens a named durable queue.
func (r *Runtime) OpenQueue(name string) (*queue.Queue, error) {
	return queue.Open(r.db, name)
}

// Locks returns the per-user submission lock manager.
func (r *Runtime) Locks() *locks.Manager { return r.locks }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
