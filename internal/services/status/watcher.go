package status

import (
	"context"
	"time"

	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// Notification is the single message a status watcher delivers once a
// submission reaches its terminal state. It carries the full submission
// row, not just the verdict.
type Notification struct {
	store.Submission
}

// NotifySink receives watcher output. Implementations carry the client
// transport (SSE in the HTTP server, channels in tests).
type NotifySink interface {
	Send(n Notification) error
	Context() context.Context
	Flush() error
}

// Service watches submissions for grading completion and tails the result
// stream for operators.
type Service struct {
	logger      log.Logger
	submissions store.SubmissionStore
	results     resultTailer
	interval    time.Duration
}

// Options configures the status Service. Interval is the store poll
// period for per-submission watches.
type Options struct {
	Logger      log.Logger
	Submissions store.SubmissionStore
	Results     resultTailer
	Interval    time.Duration
}

// NewService builds a status Service.
func NewService(opts Options) *Service {
	interval := opts.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Service{
		logger:      opts.Logger.With(log.Component("status")),
		submissions: opts.Submissions,
		results:     opts.Results,
		interval:    interval,
	}
}

// Watch polls one submission until it is processed, then delivers exactly
// one notification to the sink and returns. It returns early with the
// sink context's error on client disconnect, or store.ErrNotFound for an
// unknown submission.
func (s *Service) Watch(submissionID int64, sink NotifySink) error {
	ctx := sink.Context()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		sub, err := s.submissions.Get(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Processed() {
			if err := sink.Send(Notification{Submission: sub}); err != nil {
				return err
			}
			if err := sink.Flush(); err != nil {
				return err
			}
			s.logger.Debug("status notification delivered", log.Int64("submission_id", submissionID))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
