package grading

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/PenteractAI/python-practice-platform/internal/locks"
	"github.com/PenteractAI/python-practice-platform/internal/queue"
	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// Consumer applies grading results: it classifies feedback, records the
// terminal state on the submission row, and releases the submitter's
// lock. The terminal update is guarded, so a redelivered result is a
// harmless no-op apart from the lock release.
type Consumer struct {
	logger      log.Logger
	results     *queue.Queue
	submissions store.SubmissionStore
	locks       *locks.Manager

	group    string
	consumer string
	block    time.Duration
	lease    time.Duration
}

// ConsumerOptions configures a Consumer.
type ConsumerOptions struct {
	Logger      log.Logger
	Results     *queue.Queue
	Submissions store.SubmissionStore
	Locks       *locks.Manager
	Group       string
	Consumer    string
	Block       time.Duration
	Lease       time.Duration
}

// NewConsumer builds a result Consumer.
func NewConsumer(opts ConsumerOptions) *Consumer {
	return &Consumer{
		logger:      opts.Logger.With(log.Component("result-consumer"), log.Str("consumer", opts.Consumer)),
		results:     opts.Results,
		submissions: opts.Submissions,
		locks:       opts.Locks,
		group:       opts.Group,
		consumer:    opts.Consumer,
		block:       opts.Block,
		lease:       opts.Lease,
	}
}

// Run consumes results until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	sub, err := c.results.Subscribe(c.group, c.consumer, c.block, c.lease)
	if err != nil {
		return err
	}
	c.logger.Info("result consumer started", log.Str("queue", c.results.Name()))

	for {
		d, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("result consumer stopping")
				return nil
			}
			c.logger.Error("result dequeue failed", log.Err(err))
			sleepCtx(ctx, time.Second)
			continue
		}
		if d == nil {
			continue
		}
		if err := c.apply(ctx, d); err != nil {
			// Transient failure (store down); redeliver after lease.
			c.logger.Error("applying result failed", log.Uint64("seq", d.Seq), log.Err(err))
			continue
		}
		if err := sub.Ack(d.Seq); err != nil {
			c.logger.Error("acking result failed", log.Uint64("seq", d.Seq), log.Err(err))
		}
	}
}

// apply processes one result. A nil return means the delivery may be
// acked, including the drop paths for malformed or orphaned results.
func (c *Consumer) apply(ctx context.Context, d *queue.Delivery) error {
	res, err := DecodeResult(d.Payload)
	if err != nil {
		c.logger.Error("dropping malformed result", log.Uint64("seq", d.Seq), log.Err(err))
		return nil
	}
	logger := c.logger.With(log.Int64("submission_id", res.SubmissionID))

	sub, err := c.submissions.Get(ctx, res.SubmissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Result for a row that no longer exists; nothing to update
			// and no lock owner to find.
			logger.Warn("dropping result for unknown submission")
			return nil
		}
		return err
	}

	correct := feedbackIndicatesCorrect(res.GraderFeedback)
	applied, err := c.submissions.MarkProcessed(ctx, res.SubmissionID, res.GraderFeedback, correct)
	if err != nil {
		return err
	}
	if !applied {
		logger.Warn("submission already processed, skipping update")
	}

	if err := c.locks.Release(sub.UserID); err != nil {
		return err
	}
	logger.Info("result applied", log.Bool("correct", correct))
	return nil
}
