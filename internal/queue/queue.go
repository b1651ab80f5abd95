package queue

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	pebblestore "github.com/PenteractAI/python-practice-platform/internal/storage/pebble"
)

// Queue is a durable, ordered, append-only log with consumer-group
// delivery semantics: at-least-once, per-entry acknowledgment, redelivery
// of unacknowledged entries once their lease expires.
type Queue struct {
	db   *pebblestore.DB
	name string

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// Open initializes a Queue and loads the last sequence from metadata (if
// any).
func Open(db *pebblestore.DB, name string) (*Queue, error) {
	q := &Queue{db: db, name: name, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyMeta(name))
	if err == nil && len(meta) >= 8 {
		q.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return q, nil
}

// Name returns the queue's name.
func (q *Queue) Name() string { return q.name }

// LastSeq returns the sequence of the most recently published entry.
func (q *Queue) LastSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSeq
}

// Publish appends a payload as a single atomic batch and returns the
// assigned sequence number (the entry's identity).
func (q *Queue) Publish(ctx context.Context, payload []byte) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := q.db.NewBatch()
	defer b.Close()

	seq := q.lastSeq + 1
	val := EncodeEntry(timestampHeader(time.Now().UnixMilli()), payload)
	if err := b.Set(KeyEntry(q.name, seq), val, nil); err != nil {
		return 0, err
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(KeyMeta(q.name), meta[:], nil); err != nil {
		return 0, err
	}

	if err := q.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	q.lastSeq = seq

	// wake blocked group readers and tailers
	close(q.notifyCh)
	q.notifyCh = make(chan struct{})
	return seq, nil
}

// entry loads and decodes a single entry by sequence.
func (q *Queue) entry(seq uint64) (Decoded, bool) {
	val, err := q.db.Get(KeyEntry(q.name, seq))
	if err != nil {
		return Decoded{}, false
	}
	return DecodeEntry(val)
}

// waitForAppend blocks until a new append occurs, the timeout elapses, or
// ctx is done. It returns true only when woken by an append.
func (q *Queue) waitForAppend(ctx context.Context, timeout time.Duration) (bool, error) {
	q.mu.Lock()
	ch := q.notifyCh
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
