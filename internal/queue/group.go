package queue

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
)

// Pending value encoding: leaseExpiry(8B BE, ms) | attempts(4B BE) | consumerID.

func encodePending(expiryMs int64, attempts uint32, consumer string) []byte {
	out := make([]byte, 12, 12+len(consumer))
	binary.BigEndian.PutUint64(out[0:8], uint64(expiryMs))
	binary.BigEndian.PutUint32(out[8:12], attempts)
	return append(out, consumer...)
}

func decodePending(b []byte) (expiryMs int64, attempts uint32, consumer string, ok bool) {
	if len(b) < 12 {
		return 0, 0, "", false
	}
	return int64(binary.BigEndian.Uint64(b[0:8])), binary.BigEndian.Uint32(b[8:12]), string(b[12:]), true
}

// CreateGroup registers a consumer group. Creating an already-existing
// group is not an error; the existing cursor is preserved. A new group
// starts delivering entries published after its creation.
func (q *Queue) CreateGroup(group string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := KeyCursor(q.name, group)
	if ok, err := q.db.Has(key); err != nil {
		return err
	} else if ok {
		return nil
	}
	var cur [8]byte
	binary.BigEndian.PutUint64(cur[:], q.lastSeq)
	return q.db.Set(key, cur[:])
}

// Ack acknowledges a delivered entry, removing it from the group's pending
// set. Acknowledging an entry that is not pending is a no-op.
func (q *Queue) Ack(group string, seq uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.db.Delete(KeyPending(q.name, group, seq))
}

// PendingCount returns the number of delivered-but-unacknowledged entries
// for a group.
func (q *Queue) PendingCount(group string) (int, error) {
	prefix := KeyPendingPrefix(q.name, group)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, nil
}

// deliverNext hands out the next entry for a group: first any pending
// entry whose lease has expired (redelivery), otherwise the first entry
// past the group cursor. Delivery and cursor advancement commit in one
// batch. Returns nil when nothing is deliverable right now.
func (q *Queue) deliverNext(ctx context.Context, group, consumer string, lease time.Duration, nowMs int64) (*Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if d, err := q.reclaimExpired(group, consumer, lease, nowMs); err != nil || d != nil {
		return d, err
	}

	cursor := uint64(0)
	if cur, err := q.db.Get(KeyCursor(q.name, group)); err == nil && len(cur) >= 8 {
		cursor = binary.BigEndian.Uint64(cur[:8])
	}
	if cursor >= q.lastSeq {
		return nil, nil
	}

	prefix := KeyEntryPrefix(q.name)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: KeyEntry(q.name, cursor+1), UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	if !iter.First() {
		return nil, nil
	}
	key := iter.Key()
	seq := binary.BigEndian.Uint64(key[len(key)-8:])
	dec, okDec := DecodeEntry(iter.Value())
	if !okDec {
		return nil, nil
	}

	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyPending(q.name, group, seq), encodePending(nowMs+lease.Milliseconds(), 1, consumer), nil); err != nil {
		return nil, err
	}
	var cur [8]byte
	binary.BigEndian.PutUint64(cur[:], seq)
	if err := b.Set(KeyCursor(q.name, group), cur[:], nil); err != nil {
		return nil, err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return &Delivery{Seq: seq, Payload: dec.Payload, Attempts: 1, PublishedMs: HeaderTimestampMs(dec.Header)}, nil
}

// reclaimExpired scans the group's pending set for the lowest-sequence
// entry whose lease has expired and re-leases it to the calling consumer.
func (q *Queue) reclaimExpired(group, consumer string, lease time.Duration, nowMs int64) (*Delivery, error) {
	prefix := KeyPendingPrefix(q.name, group)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for ok := iter.First(); ok; ok = iter.Next() {
		key := iter.Key()
		if len(key) < len(prefix)+8 {
			continue
		}
		expiry, attempts, _, okDec := decodePending(iter.Value())
		if !okDec || expiry > nowMs {
			continue
		}
		seq := binary.BigEndian.Uint64(key[len(key)-8:])
		dec, okEnt := q.entry(seq)
		if !okEnt {
			// Entry lost; drop the orphaned pending record.
			_ = q.db.Delete(append([]byte(nil), key...))
			continue
		}
		attempts++
		if err := q.db.Set(append([]byte(nil), key...), encodePending(nowMs+lease.Milliseconds(), attempts, consumer)); err != nil {
			return nil, err
		}
		return &Delivery{Seq: seq, Payload: dec.Payload, Attempts: attempts, PublishedMs: HeaderTimestampMs(dec.Header)}, nil
	}
	return nil, nil
}
