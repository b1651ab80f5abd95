package queue

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
)

// Item is an entry returned by a non-consuming read. Unlike Delivery it
// carries no group state; reading it does not move any cursor.
type Item struct {
	Seq         uint64
	Payload     []byte
	PublishedMs int64
}

// Read returns up to limit entries with sequence > after, oldest first.
// It never blocks; an empty slice means the caller is at the tail.
func (q *Queue) Read(after uint64, limit int) ([]Item, error) {
	if limit <= 0 {
		return nil, nil
	}
	prefix := KeyEntryPrefix(q.name)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: KeyEntry(q.name, after+1), UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var items []Item
	for ok := iter.First(); ok && len(items) < limit; ok = iter.Next() {
		key := iter.Key()
		if len(key) < 8 {
			continue
		}
		seq := binary.BigEndian.Uint64(key[len(key)-8:])
		dec, okDec := DecodeEntry(iter.Value())
		if !okDec {
			continue
		}
		payload := append([]byte(nil), dec.Payload...)
		items = append(items, Item{Seq: seq, Payload: payload, PublishedMs: HeaderTimestampMs(dec.Header)})
	}
	return items, nil
}

// Tail blocks until at least one entry with sequence > after exists or ctx
// is done, then returns a batch of entries. It is intended for live
// followers such as streaming HTTP endpoints.
func (q *Queue) Tail(ctx context.Context, after uint64, limit int) ([]Item, error) {
	for {
		items, err := q.Read(after, limit)
		if err != nil || len(items) > 0 {
			return items, err
		}
		if _, err := q.waitForAppend(ctx, time.Second); err != nil {
			return nil, err
		}
	}
}
