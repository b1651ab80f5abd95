package grading

import (
	"context"
	"time"

	"github.com/PenteractAI/python-practice-platform/internal/grader"
	"github.com/PenteractAI/python-practice-platform/internal/queue"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// Worker consumes grading tasks, runs them in the sandbox, and publishes
// the result. It acks a task only after its result is durably published,
// so a crash mid-grade redelivers the task to another worker.
type Worker struct {
	logger  log.Logger
	tasks   *queue.Queue
	results *queue.Queue
	runner  grader.Runner

	group    string
	consumer string
	block    time.Duration
	lease    time.Duration
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Logger   log.Logger
	Tasks    *queue.Queue
	Results  *queue.Queue
	Runner   grader.Runner
	Group    string
	Consumer string
	Block    time.Duration
	Lease    time.Duration
}

// NewWorker builds a Worker. Each worker needs its own Consumer identity
// within the shared group.
func NewWorker(opts WorkerOptions) *Worker {
	return &Worker{
		logger:   opts.Logger.With(log.Component("grading-worker"), log.Str("consumer", opts.Consumer)),
		tasks:    opts.Tasks,
		results:  opts.Results,
		runner:   opts.Runner,
		group:    opts.Group,
		consumer: opts.Consumer,
		block:    opts.Block,
		lease:    opts.Lease,
	}
}

// Run consumes tasks until ctx is cancelled. It returns nil on clean
// shutdown and an error only when the queue subscription cannot be
// established.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := w.tasks.Subscribe(w.group, w.consumer, w.block, w.lease)
	if err != nil {
		return err
	}
	w.logger.Info("grading worker started", log.Str("queue", w.tasks.Name()))

	for {
		d, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("grading worker stopping")
				return nil
			}
			w.logger.Error("task dequeue failed", log.Err(err))
			sleepCtx(ctx, time.Second)
			continue
		}
		if d == nil {
			continue
		}
		w.handle(ctx, sub, d)
	}
}

func (w *Worker) handle(ctx context.Context, sub *queue.Subscriber, d *queue.Delivery) {
	task, err := DecodeTask(d.Payload)
	if err != nil {
		// Undecodable payloads would redeliver forever; drop them.
		w.logger.Error("dropping malformed task", log.Uint64("seq", d.Seq), log.Err(err))
		_ = sub.Ack(d.Seq)
		return
	}

	logger := w.logger.With(log.Int64("submission_id", task.SubmissionID), log.Uint64("seq", d.Seq))
	if d.Attempts > 1 {
		logger.Warn("regrading redelivered task", log.F("attempts", d.Attempts))
	}

	feedback, err := w.runner.Execute(ctx, task.Code, task.TestCode)
	if err != nil {
		// Leave the task pending; it redelivers once the lease expires.
		logger.Error("sandbox execution failed", log.Err(err))
		return
	}

	payload, err := EncodeResult(Result{SubmissionID: task.SubmissionID, GraderFeedback: feedback})
	if err != nil {
		logger.Error("encoding result failed", log.Err(err))
		return
	}
	if _, err := w.results.Publish(ctx, payload); err != nil {
		logger.Error("publishing result failed", log.Err(err))
		return
	}
	if err := sub.Ack(d.Seq); err != nil {
		logger.Error("acking task failed", log.Err(err))
		return
	}
	logger.Info("submission graded")
}

// sleepCtx pauses without outliving ctx.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
