package status

import (
	"context"

	"github.com/PenteractAI/python-practice-platform/internal/queue"
	"github.com/PenteractAI/python-practice-platform/internal/services/grading"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// resultTailer is the slice of the queue API the tail needs.
type resultTailer interface {
	LastSeq() uint64
	Tail(ctx context.Context, after uint64, limit int) ([]queue.Item, error)
}

// TailItem is one result-stream entry delivered to a tail sink.
type TailItem struct {
	Seq            uint64 `json:"seq"`
	SubmissionID   int64  `json:"submissionId"`
	GraderFeedback string `json:"graderFeedback"`
	PublishedMs    int64  `json:"publishedMs"`
}

// TailSink receives live result-stream entries.
type TailSink interface {
	Send(it TailItem) error
	Context() context.Context
	Flush() error
}

const tailBatch = 64

// TailResults follows the result stream from its current tail, delivering
// entries that match the optional CEL filter expression until the sink's
// context is cancelled. A bad expression fails fast before any entry is
// read.
func (s *Service) TailResults(filterExpr string, sink TailSink) error {
	filter, err := newCELFilter(filterExpr)
	if err != nil {
		return err
	}
	ctx := sink.Context()
	after := s.results.LastSeq()
	s.logger.Info("result tail started", log.Uint64("after", after), log.Bool("filtered", filter.enabled))

	for {
		items, err := s.results.Tail(ctx, after, tailBatch)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		sent := false
		for _, it := range items {
			after = it.Seq
			if !filter.Eval(it) {
				continue
			}
			out := TailItem{Seq: it.Seq, PublishedMs: it.PublishedMs, GraderFeedback: string(it.Payload)}
			if res, err := grading.DecodeResult(it.Payload); err == nil {
				out.SubmissionID = res.SubmissionID
				out.GraderFeedback = res.GraderFeedback
			}
			if err := sink.Send(out); err != nil {
				return err
			}
			sent = true
		}
		if sent {
			if err := sink.Flush(); err != nil {
				return err
			}
		}
	}
}
