package queue

import (
	"context"
	"testing"
	"time"

	pebblestore "github.com/PenteractAI/python-practice-platform/internal/storage/pebble"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(newTestDB(t), "tasks")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	return q
}

func TestPublishAssignsSequential(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	s1, err := q.Publish(ctx, []byte("a"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	s2, err := q.Publish(ctx, []byte("b"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !(s1 < s2) {
		t.Fatalf("expected increasing seqs: %d, %d", s1, s2)
	}
	if q.LastSeq() != s2 {
		t.Fatalf("lastSeq = %d, want %d", q.LastSeq(), s2)
	}
}

func TestDeliverInOrderThenAck(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		if _, err := q.Publish(ctx, []byte(p)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	sub, err := q.Subscribe("g", "c1", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	for _, want := range []string{"a", "b", "c"} {
		d, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if d == nil {
			t.Fatalf("expected delivery for %q", want)
		}
		if string(d.Payload) != want {
			t.Fatalf("payload = %q, want %q", d.Payload, want)
		}
		if d.Attempts != 1 {
			t.Fatalf("attempts = %d, want 1", d.Attempts)
		}
		if err := sub.Ack(d.Seq); err != nil {
			t.Fatalf("ack: %v", err)
		}
	}

	n, err := q.PendingCount("g")
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if n != 0 {
		t.Fatalf("pending = %d, want 0", n)
	}
}

func TestNextTimesOutWhenEmpty(t *testing.T) {
	q := newTestQueue(t)
	sub, err := q.Subscribe("g", "c1", 30*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	start := time.Now()
	d, err := sub.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d != nil {
		t.Fatalf("expected nil delivery on empty queue")
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Fatalf("returned before block elapsed")
	}
}

func TestNextWakesOnPublish(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	sub, err := q.Subscribe("g", "c1", 2*time.Second, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = q.Publish(ctx, []byte("late"))
	}()

	start := time.Now()
	d, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d == nil || string(d.Payload) != "late" {
		t.Fatalf("expected the published entry, got %+v", d)
	}
	if time.Since(start) >= 2*time.Second {
		t.Fatalf("next did not wake on publish")
	}
}

func TestUnackedEntryRedeliveredAfterLease(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.Publish(ctx, []byte("task")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// First consumer takes the entry and dies without acking.
	dead, err := q.Subscribe("g", "dead", 50*time.Millisecond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d1, err := dead.Next(ctx)
	if err != nil || d1 == nil {
		t.Fatalf("first delivery: d=%v err=%v", d1, err)
	}

	time.Sleep(30 * time.Millisecond)

	alive, err := q.Subscribe("g", "alive", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d2, err := alive.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d2 == nil {
		t.Fatalf("expected redelivery after lease expiry")
	}
	if d2.Seq != d1.Seq || string(d2.Payload) != "task" {
		t.Fatalf("redelivered wrong entry: %+v", d2)
	}
	if d2.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", d2.Attempts)
	}
}

func TestAckedEntryNotRedelivered(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.Publish(ctx, []byte("task")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	sub, err := q.Subscribe("g", "c1", 50*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d, err := sub.Next(ctx)
	if err != nil || d == nil {
		t.Fatalf("delivery: d=%v err=%v", d, err)
	}
	if err := sub.Ack(d.Seq); err != nil {
		t.Fatalf("ack: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	again, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if again != nil {
		t.Fatalf("acked entry redelivered: %+v", again)
	}
}

func TestCreateGroupIdempotent(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if err := q.CreateGroup("g"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := q.Publish(ctx, []byte("a")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// Re-creating must not reset the cursor past the published entry.
	if err := q.CreateGroup("g"); err != nil {
		t.Fatalf("re-create: %v", err)
	}
	sub, err := q.Subscribe("g", "c1", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d == nil || string(d.Payload) != "a" {
		t.Fatalf("expected entry after re-create, got %+v", d)
	}
}

func TestNewGroupStartsAtTail(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.Publish(ctx, []byte("old")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	sub, err := q.Subscribe("late-group", "c1", 30*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d != nil {
		t.Fatalf("new group saw pre-existing entry: %+v", d)
	}
	if _, err := q.Publish(ctx, []byte("new")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	d, err = sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d == nil || string(d.Payload) != "new" {
		t.Fatalf("expected only the new entry, got %+v", d)
	}
}

func TestDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	q, err := Open(db, "tasks")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	seq, err := q.Publish(ctx, []byte("persisted"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.CreateGroup("g"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	q, err = Open(db, "tasks")
	if err != nil {
		t.Fatalf("reopen queue: %v", err)
	}
	if q.LastSeq() != seq {
		t.Fatalf("lastSeq after reopen = %d, want %d", q.LastSeq(), seq)
	}
	s2, err := q.Publish(ctx, []byte("after"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if s2 != seq+1 {
		t.Fatalf("seq after reopen = %d, want %d", s2, seq+1)
	}
}

func TestReadDoesNotConsume(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		if _, err := q.Publish(ctx, []byte(p)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if err := q.CreateGroup("g"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := q.Publish(ctx, []byte("d")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	items, err := q.Read(0, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("read %d items, want 4", len(items))
	}
	if string(items[0].Payload) != "a" || string(items[3].Payload) != "d" {
		t.Fatalf("unexpected order: %q .. %q", items[0].Payload, items[3].Payload)
	}

	// Group delivery unaffected by the read above.
	sub, err := q.Subscribe("g", "c1", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d == nil || string(d.Payload) != "d" {
		t.Fatalf("expected group to deliver from its own cursor, got %+v", d)
	}
}

func TestReadLimitAndOffset(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	var seqs []uint64
	for _, p := range []string{"a", "b", "c"} {
		s, err := q.Publish(ctx, []byte(p))
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		seqs = append(seqs, s)
	}
	items, err := q.Read(seqs[0], 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 1 || items[0].Seq != seqs[1] || string(items[0].Payload) != "b" {
		t.Fatalf("unexpected page: %+v", items)
	}
}
