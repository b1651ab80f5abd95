package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Submission statuses. A submission is created pending and moves to
// processed exactly once, when its grading result lands.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
)

// Submission is one graded (or in-flight) attempt at an assignment.
type Submission struct {
	ID           int64     `db:"id" json:"id"`
	AssignmentID int64     `db:"assignment_id" json:"assignmentId"`
	UserID       string    `db:"user_id" json:"userId"`
	Code         string    `db:"code" json:"code"`
	Status       string    `db:"status" json:"status"`
	Feedback     string    `db:"feedback" json:"graderFeedback"`
	Correct      bool      `db:"correct" json:"correct"`
	LastUpdated  time.Time `db:"last_updated" json:"lastUpdated"`
}

// Processed reports whether grading has completed for this submission.
func (s Submission) Processed() bool { return s.Status == StatusProcessed }

// Assignment is a course exercise. Order defines the progression; TestCode
// is appended to a submission for the sandbox run and never served to
// clients.
type Assignment struct {
	ID       int64  `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	Order    int    `db:"ord" json:"order"`
	Handout  string `db:"handout" json:"handout"`
	TestCode string `db:"test_code" json:"-"`
}

// SubmissionStore persists submissions.
type SubmissionStore interface {
	// Create inserts a submission and returns it with the assigned ID.
	Create(ctx context.Context, sub Submission) (Submission, error)
	// Get returns a submission by ID, or ErrNotFound.
	Get(ctx context.Context, id int64) (Submission, error)
	// FindMatch returns the newest prior submission with identical code
	// for the same assignment, regardless of submitter, or ErrNotFound.
	FindMatch(ctx context.Context, assignmentID int64, code string) (Submission, error)
	// ByUser returns all of a user's submissions, newest first.
	ByUser(ctx context.Context, userID string) ([]Submission, error)
	// ByUserAndAssignment returns a user's submissions for one
	// assignment, newest first.
	ByUserAndAssignment(ctx context.Context, userID string, assignmentID int64) ([]Submission, error)
	// MarkProcessed records a grading result. It updates only a still
	// pending row and reports whether the update applied, so redelivered
	// results cannot overwrite a terminal state.
	MarkProcessed(ctx context.Context, id int64, feedback string, correct bool) (bool, error)
	// Score returns 100 times the number of distinct assignments the
	// user has solved.
	Score(ctx context.Context, userID string) (int, error)
}

// AssignmentStore persists assignments.
type AssignmentStore interface {
	// Get returns an assignment by ID, or ErrNotFound.
	Get(ctx context.Context, id int64) (Assignment, error)
	// ByOrder returns the assignment at a progression position, or
	// ErrNotFound past the end of the course.
	ByOrder(ctx context.Context, order int) (Assignment, error)
	// Add inserts an assignment and returns it with the assigned ID.
	Add(ctx context.Context, a Assignment) (Assignment, error)
	// All returns every assignment ordered by progression position.
	All(ctx context.Context) ([]Assignment, error)
}
