package grading

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PenteractAI/python-practice-platform/internal/locks"
	"github.com/PenteractAI/python-practice-platform/internal/queue"
	pebblestore "github.com/PenteractAI/python-practice-platform/internal/storage/pebble"
	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/internal/store/inmem"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

type fakeRunner struct {
	feedback string
	err      error
	calls    int
}

func (f *fakeRunner) Execute(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.feedback, f.err
}

type testEnv struct {
	db      *pebblestore.DB
	tasks   *queue.Queue
	results *queue.Queue
	locks   *locks.Manager
	subs    store.SubmissionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tasks, err := queue.Open(db, "grading-tasks")
	if err != nil {
		t.Fatalf("open tasks: %v", err)
	}
	results, err := queue.Open(db, "grading-results")
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	return &testEnv{
		db:      db,
		tasks:   tasks,
		results: results,
		locks:   locks.NewManager(db),
		subs:    inmem.NewSubmissionStore(inmem.NewDB()),
	}
}

func testLogger() log.Logger {
	return log.NewLogger(log.WithOutput(log.NullOutput{}))
}

func TestFeedbackClassification(t *testing.T) {
	cases := []struct {
		feedback string
		correct  bool
	}{
		{"OK (3 tests)", true},
		{"", true},
		{"FAILED (failures=2)", false},
		{"Traceback (most recent call last):\n  File ...", false},
		{"ran fine\nFAILED later", false},
	}
	for _, c := range cases {
		if got := feedbackIndicatesCorrect(c.feedback); got != c.correct {
			t.Errorf("feedbackIndicatesCorrect(%q) = %v, want %v", c.feedback, got, c.correct)
		}
	}
}

func TestWorkerGradesAndPublishesResult(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload, _ := EncodeTask(Task{SubmissionID: 7, Code: "print(1)", TestCode: "assert True"})
	if _, err := env.tasks.Publish(ctx, payload); err != nil {
		t.Fatalf("publish task: %v", err)
	}

	runner := &fakeRunner{feedback: "OK (1 test)"}
	w := NewWorker(WorkerOptions{
		Logger: testLogger(), Tasks: env.tasks, Results: env.results, Runner: runner,
		Group: "g", Consumer: "w1", Block: 100 * time.Millisecond, Lease: time.Minute,
	})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	resSub, err := env.results.Subscribe("rg", "rc", 2*time.Second, time.Minute)
	if err != nil {
		t.Fatalf("subscribe results: %v", err)
	}
	d, err := resSub.Next(ctx)
	if err != nil || d == nil {
		t.Fatalf("result delivery: d=%v err=%v", d, err)
	}
	res, err := DecodeResult(d.Payload)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.SubmissionID != 7 || res.GraderFeedback != "OK (1 test)" {
		t.Fatalf("unexpected result: %+v", res)
	}

	waitForPending(t, env.tasks, "g", 0)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("worker run: %v", err)
	}
}

func waitForPending(t *testing.T, q *queue.Queue, group string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := q.PendingCount(group)
		if err != nil {
			t.Fatalf("pending count: %v", err)
		}
		if n == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pending count never reached %d", want)
}

func TestWorkerLeavesTaskPendingOnSandboxError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload, _ := EncodeTask(Task{SubmissionID: 1, Code: "x", TestCode: "y"})
	if _, err := env.tasks.Publish(ctx, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	runner := &fakeRunner{err: context.DeadlineExceeded}
	w := NewWorker(WorkerOptions{
		Logger: testLogger(), Tasks: env.tasks, Results: env.results, Runner: runner,
		Group: "g", Consumer: "w1", Block: 50 * time.Millisecond, Lease: time.Minute,
	})

	sub, err := env.tasks.Subscribe("g", "w1", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d, err := sub.Next(ctx)
	if err != nil || d == nil {
		t.Fatalf("delivery: d=%v err=%v", d, err)
	}
	w.handle(ctx, sub, d)

	n, err := env.tasks.PendingCount("g")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if n != 1 {
		t.Fatalf("task acked despite sandbox error (pending=%d)", n)
	}
	if env.results.LastSeq() != 0 {
		t.Fatalf("result published despite sandbox error")
	}
}

func TestWorkerDropsMalformedTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.tasks.Publish(ctx, []byte("not json")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	runner := &fakeRunner{feedback: "unused"}
	w := NewWorker(WorkerOptions{
		Logger: testLogger(), Tasks: env.tasks, Results: env.results, Runner: runner,
		Group: "g", Consumer: "w1", Block: 50 * time.Millisecond, Lease: time.Minute,
	})

	sub, err := env.tasks.Subscribe("g", "w1", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d, err := sub.Next(ctx)
	if err != nil || d == nil {
		t.Fatalf("delivery: d=%v err=%v", d, err)
	}
	w.handle(ctx, sub, d)

	if runner.calls != 0 {
		t.Fatalf("sandbox called for malformed task")
	}
	if n, _ := env.tasks.PendingCount("g"); n != 0 {
		t.Fatalf("malformed task not acked (pending=%d)", n)
	}
}

func newTestConsumer(env *testEnv) *Consumer {
	return NewConsumer(ConsumerOptions{
		Logger: testLogger(), Results: env.results, Submissions: env.subs, Locks: env.locks,
		Group: "rg", Consumer: "c1", Block: 100 * time.Millisecond, Lease: time.Minute,
	})
}

func TestConsumerAppliesResultAndReleasesLock(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := env.subs.Create(ctx, store.Submission{UserID: "user-a", AssignmentID: 1, Code: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, _ := env.locks.Acquire("user-a"); !ok {
		t.Fatalf("acquire lock")
	}

	payload, _ := EncodeResult(Result{SubmissionID: sub.ID, GraderFeedback: "OK"})
	if _, err := env.results.Publish(ctx, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	c := newTestConsumer(env)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := env.subs.Get(ctx, sub.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Processed() {
			if !got.Correct || got.Feedback != "OK" {
				t.Fatalf("unexpected terminal state: %+v", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("submission never processed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if held, _ := env.locks.Held("user-a"); held {
		t.Fatalf("lock not released")
	}
	waitForPending(t, env.results, "rg", 0)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("consumer run: %v", err)
	}
}

func TestConsumerMarksFailedFeedbackIncorrect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sub, _ := env.subs.Create(ctx, store.Submission{UserID: "u", AssignmentID: 1, Code: "x"})
	payload, _ := EncodeResult(Result{SubmissionID: sub.ID, GraderFeedback: "FAILED (failures=1)"})
	seq, err := env.results.Publish(ctx, payload)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	c := newTestConsumer(env)
	if err := c.apply(ctx, &queue.Delivery{Seq: seq, Payload: payload}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, _ := env.subs.Get(ctx, sub.ID)
	if !got.Processed() || got.Correct {
		t.Fatalf("expected processed incorrect, got %+v", got)
	}
	if !strings.Contains(got.Feedback, "FAILED") {
		t.Fatalf("feedback not recorded: %q", got.Feedback)
	}
}

func TestConsumerDropsResultForUnknownSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload, _ := EncodeResult(Result{SubmissionID: 999, GraderFeedback: "OK"})
	c := newTestConsumer(env)
	if err := c.apply(ctx, &queue.Delivery{Seq: 1, Payload: payload}); err != nil {
		t.Fatalf("apply should drop unknown submissions, got %v", err)
	}
}

func TestRedeliveredResultDoesNotOverwriteTerminalState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sub, _ := env.subs.Create(ctx, store.Submission{UserID: "u", AssignmentID: 1, Code: "x"})
	c := newTestConsumer(env)

	first, _ := EncodeResult(Result{SubmissionID: sub.ID, GraderFeedback: "OK"})
	if err := c.apply(ctx, &queue.Delivery{Seq: 1, Payload: first}); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	dup, _ := EncodeResult(Result{SubmissionID: sub.ID, GraderFeedback: "FAILED late duplicate"})
	if err := c.apply(ctx, &queue.Delivery{Seq: 2, Payload: dup}); err != nil {
		t.Fatalf("duplicate apply: %v", err)
	}

	got, _ := env.subs.Get(ctx, sub.ID)
	if !got.Correct || got.Feedback != "OK" {
		t.Fatalf("terminal state overwritten: %+v", got)
	}
}

func TestCrashedWorkerTaskRedeliveredToAnother(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload, _ := EncodeTask(Task{SubmissionID: 3, Code: "c", TestCode: "t"})
	if _, err := env.tasks.Publish(ctx, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// First worker takes the task and crashes before acking.
	dead, err := env.tasks.Subscribe("g", "dead", 50*time.Millisecond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if d, err := dead.Next(ctx); err != nil || d == nil {
		t.Fatalf("first delivery: d=%v err=%v", d, err)
	}
	time.Sleep(30 * time.Millisecond)

	runner := &fakeRunner{feedback: "OK"}
	w := NewWorker(WorkerOptions{
		Logger: testLogger(), Tasks: env.tasks, Results: env.results, Runner: runner,
		Group: "g", Consumer: "alive", Block: 50 * time.Millisecond, Lease: time.Minute,
	})
	sub, err := env.tasks.Subscribe("g", "alive", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d, err := sub.Next(ctx)
	if err != nil || d == nil {
		t.Fatalf("redelivery: d=%v err=%v", d, err)
	}
	if d.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", d.Attempts)
	}
	w.handle(ctx, sub, d)

	if runner.calls != 1 {
		t.Fatalf("sandbox calls = %d", runner.calls)
	}
	if env.results.LastSeq() == 0 {
		t.Fatalf("result not published after redelivery")
	}
}
