package queue

import (
	"context"
	"time"
)

// Delivery is a single entry handed to a consumer. The entry stays in the
// group's pending set until the consumer acks it; if the lease expires
// first, the entry is redelivered to whichever consumer polls next.
type Delivery struct {
	Seq         uint64
	Payload     []byte
	Attempts    uint32
	PublishedMs int64
}

// Subscriber reads a queue on behalf of one named consumer within a
// consumer group. It is not safe for concurrent use; give each worker
// goroutine its own Subscriber.
type Subscriber struct {
	q        *Queue
	group    string
	consumer string
	block    time.Duration
	lease    time.Duration
}

// Subscribe ensures the group exists and returns a Subscriber bound to
// the given consumer identity. block bounds how long Next waits for a new
// entry; lease bounds how long a delivered entry may go unacked before it
// becomes eligible for redelivery.
func (q *Queue) Subscribe(group, consumer string, block, lease time.Duration) (*Subscriber, error) {
	if err := q.CreateGroup(group); err != nil {
		return nil, err
	}
	return &Subscriber{q: q, group: group, consumer: consumer, block: block, lease: lease}, nil
}

// Next returns the next entry owed to this consumer: the oldest expired
// pending entry first, otherwise the entry after the group cursor. When
// nothing is available it blocks up to the configured block duration and
// then returns (nil, nil), so callers can re-check their context and poll
// again. It returns an error only for storage failures or ctx
// cancellation.
func (s *Subscriber) Next(ctx context.Context) (*Delivery, error) {
	deadline := time.Now().Add(s.block)
	for {
		d, err := s.q.deliverNext(ctx, s.group, s.consumer, s.lease, time.Now().UnixMilli())
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		if _, err := s.q.waitForAppend(ctx, remaining); err != nil {
			return nil, err
		}
	}
}

// Ack acknowledges a delivered entry, removing it from the group's
// pending set.
func (s *Subscriber) Ack(seq uint64) error {
	return s.q.Ack(s.group, seq)
}
