// Package queue implements the platform's durable task and result queues.
//
// # Overview
//
// Each queue is an append-only log persisted in Pebble with consumer-group
// delivery on top. Keys are lexicographically ordered for efficient range
// scans:
//   - q/{name}/m                    (queue metadata: lastSeq)
//   - q/{name}/e/{seq_be8}          (entries)
//   - q/{name}/g/{group}/c          (durable group cursor: last delivered seq)
//   - q/{name}/g/{group}/p/{seq_be8} (pending entries awaiting ack)
//
// Records are stored as: headerLen(varint) | header | payload |
// crc32c(header|payload). The header carries the publish timestamp.
//
// # Delivery semantics
//
// Delivery is at-least-once. A group delivers each entry to exactly one
// consumer at a time: delivery writes a pending record (lease expiry,
// attempt count, consumer id) and advances the cursor in one atomic batch.
// Ack deletes the pending record. If a consumer dies before acking, the
// entry's lease expires and the next poller reclaims it, so an in-flight
// task is never lost, though it may be graded twice.
//
// API surface (internal)
//
//	q, _ := Open(db, "grading-tasks")
//	seq, _ := q.Publish(ctx, payload)
//
//	sub, _ := q.Subscribe("grading-task-group", "worker-1", block, lease)
//	d, _ := sub.Next(ctx) // nil on block timeout; caller loops
//	_ = sub.Ack(d.Seq)
//
//	// Non-consuming tail for live followers (no cursor movement)
//	items, _ := q.Tail(ctx, afterSeq, 64)
package queue
