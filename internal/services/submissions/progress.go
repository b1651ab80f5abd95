package submissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/PenteractAI/python-practice-platform/internal/store"
)

// CurrentAssignment is a user's position in the course: the assignment
// they should work on next and their submissions for it. Completed is set
// when the newest submission solved the last assignment.
type CurrentAssignment struct {
	Assignment  store.Assignment   `json:"assignment"`
	Submissions []store.Submission `json:"submissions"`
	Completed   bool               `json:"completed"`
}

// Current resolves a user's current assignment. A user with no
// submissions starts at the first assignment; a correct newest submission
// advances to the next one; otherwise the user stays on the assignment
// they last attempted.
func (g *Gateway) Current(ctx context.Context, userID string) (CurrentAssignment, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return CurrentAssignment{}, pkgerrors.Wrap(ErrInvalidUser, err.Error())
	}
	userID = uid.String()

	subs, err := g.submissions.ByUser(ctx, userID)
	if err != nil {
		return CurrentAssignment{}, err
	}
	if len(subs) == 0 {
		first, err := g.assignments.ByOrder(ctx, 1)
		if err != nil {
			return CurrentAssignment{}, err
		}
		return CurrentAssignment{Assignment: first}, nil
	}

	newest := subs[0]
	current, err := g.assignments.Get(ctx, newest.AssignmentID)
	if err != nil {
		return CurrentAssignment{}, err
	}

	if newest.Correct {
		next, err := g.assignments.ByOrder(ctx, current.Order+1)
		if errors.Is(err, store.ErrNotFound) {
			return CurrentAssignment{Assignment: current, Completed: true}, nil
		}
		if err != nil {
			return CurrentAssignment{}, err
		}
		nextSubs, err := g.submissions.ByUserAndAssignment(ctx, userID, next.ID)
		if err != nil {
			return CurrentAssignment{}, err
		}
		return CurrentAssignment{Assignment: next, Submissions: nextSubs}, nil
	}

	currentSubs, err := g.submissions.ByUserAndAssignment(ctx, userID, current.ID)
	if err != nil {
		return CurrentAssignment{}, err
	}
	return CurrentAssignment{Assignment: current, Submissions: currentSubs}, nil
}

// Score returns the user's course score: 100 points per distinct solved
// assignment.
func (g *Gateway) Score(ctx context.Context, userID string) (int, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, pkgerrors.Wrap(ErrInvalidUser, err.Error())
	}
	return g.submissions.Score(ctx, uid.String())
}

// Status returns one submission by ID for status polling.
func (g *Gateway) Status(ctx context.Context, submissionID int64) (store.Submission, error) {
	return g.submissions.Get(ctx, submissionID)
}
