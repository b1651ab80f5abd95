package submissions

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/PenteractAI/python-practice-platform/internal/locks"
	"github.com/PenteractAI/python-practice-platform/internal/queue"
	"github.com/PenteractAI/python-practice-platform/internal/services/grading"
	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// ErrConcurrentSubmission is returned while a user's previous submission
// is still being graded.
var ErrConcurrentSubmission = errors.New("a submission is already being graded for this user")

// ErrUnknownAssignment is returned for a submission against an
// assignment that does not exist.
var ErrUnknownAssignment = errors.New("unknown assignment")

// ErrInvalidUser is returned when a user ID is not a valid UUID.
var ErrInvalidUser = errors.New("invalid user id")

var validate = validator.New()

// SubmitRequest is a grading request from a client.
type SubmitRequest struct {
	UserID       string `json:"userUuid" validate:"required,uuid"`
	AssignmentID int64  `json:"assignmentId" validate:"required,gt=0"`
	Code         string `json:"code" validate:"required"`
}

// Gateway accepts submissions: it rejects concurrent submissions per
// user, short-circuits exact resubmissions, and enqueues everything else
// for asynchronous grading.
type Gateway struct {
	logger      log.Logger
	submissions store.SubmissionStore
	assignments store.AssignmentStore
	locks       *locks.Manager
	tasks       *queue.Queue
}

// GatewayOptions configures a Gateway. Assignments is typically the
// cached decorator.
type GatewayOptions struct {
	Logger      log.Logger
	Submissions store.SubmissionStore
	Assignments store.AssignmentStore
	Locks       *locks.Manager
	Tasks       *queue.Queue
}

// NewGateway builds a Gateway.
func NewGateway(opts GatewayOptions) *Gateway {
	return &Gateway{
		logger:      opts.Logger.With(log.Component("submission-gateway")),
		submissions: opts.Submissions,
		assignments: opts.Assignments,
		locks:       opts.Locks,
		tasks:       opts.Tasks,
	}
}

// Submit validates and accepts a grading request. It returns the persisted
// submission: status pending when a grading task was enqueued, or the
// copied terminal state when an identical earlier attempt already has a
// verdict.
func (g *Gateway) Submit(ctx context.Context, req SubmitRequest) (store.Submission, error) {
	if err := validate.Struct(req); err != nil {
		return store.Submission{}, err
	}
	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		return store.Submission{}, pkgerrors.Wrap(ErrInvalidUser, err.Error())
	}
	userID := uid.String()
	logger := g.logger.With(log.Str("user_id", userID), log.Int64("assignment_id", req.AssignmentID))

	acquired, err := g.locks.Acquire(userID)
	if err != nil {
		return store.Submission{}, err
	}
	if !acquired {
		return store.Submission{}, ErrConcurrentSubmission
	}

	sub, err := g.submit(ctx, logger, userID, req)
	if err != nil {
		// Nothing was enqueued; no result will ever release this lock.
		_ = g.locks.Release(userID)
		return store.Submission{}, err
	}
	return sub, nil
}

// submit runs the post-lock half of Submit. The caller owns lock cleanup
// on error.
func (g *Gateway) submit(ctx context.Context, logger log.Logger, userID string, req SubmitRequest) (store.Submission, error) {
	assignment, err := g.assignments.Get(ctx, req.AssignmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Submission{}, ErrUnknownAssignment
		}
		return store.Submission{}, err
	}

	// Exact resubmission, by any user: copy the earlier verdict instead
	// of grading the same code twice.
	if prior, err := g.submissions.FindMatch(ctx, req.AssignmentID, req.Code); err == nil && prior.Processed() {
		copied, err := g.submissions.Create(ctx, store.Submission{
			AssignmentID: req.AssignmentID,
			UserID:       userID,
			Code:         req.Code,
			Status:       prior.Status,
			Feedback:     prior.Feedback,
			Correct:      prior.Correct,
		})
		if err != nil {
			return store.Submission{}, err
		}
		// No result will arrive for a copied submission; release now.
		if err := g.locks.Release(userID); err != nil {
			return store.Submission{}, err
		}
		logger.Info("duplicate submission short-circuited", log.Int64("submission_id", copied.ID), log.Int64("prior_id", prior.ID))
		return copied, nil
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return store.Submission{}, err
	}

	sub, err := g.submissions.Create(ctx, store.Submission{
		AssignmentID: req.AssignmentID,
		UserID:       userID,
		Code:         req.Code,
		Status:       store.StatusPending,
	})
	if err != nil {
		return store.Submission{}, err
	}

	payload, err := grading.EncodeTask(grading.Task{
		SubmissionID: sub.ID,
		Code:         sub.Code,
		TestCode:     assignment.TestCode,
	})
	if err != nil {
		return store.Submission{}, err
	}
	seq, err := g.tasks.Publish(ctx, payload)
	if err != nil {
		return store.Submission{}, err
	}
	logger.Info("grading task enqueued", log.Int64("submission_id", sub.ID), log.Uint64("seq", seq))
	return sub, nil
}
