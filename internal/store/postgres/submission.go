package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/PenteractAI/python-practice-platform/internal/store"
)

type submissionStore struct {
	db *sqlx.DB
}

// NewSubmissionStore returns a Postgres-backed store.SubmissionStore.
func NewSubmissionStore(db *sqlx.DB) store.SubmissionStore {
	return &submissionStore{db: db}
}

func (s *submissionStore) Create(ctx context.Context, sub store.Submission) (store.Submission, error) {
	if sub.Status == "" {
		sub.Status = store.StatusPending
	}
	const q = `
		INSERT INTO submission (assignment_id, user_id, code, status, feedback, correct)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, last_updated`
	err := s.db.QueryRowxContext(ctx, q,
		sub.AssignmentID, sub.UserID, sub.Code, sub.Status, sub.Feedback, sub.Correct,
	).Scan(&sub.ID, &sub.LastUpdated)
	if err != nil {
		return store.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (s *submissionStore) Get(ctx context.Context, id int64) (store.Submission, error) {
	var sub store.Submission
	const q = `SELECT * FROM submission WHERE id = $1`
	if err := s.db.GetContext(ctx, &sub, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Submission{}, store.ErrNotFound
		}
		return store.Submission{}, errors.Wrap(err, "getting submission")
	}
	return sub, nil
}

func (s *submissionStore) FindMatch(ctx context.Context, assignmentID int64, code string) (store.Submission, error) {
	var sub store.Submission
	const q = `
		SELECT * FROM submission
		WHERE assignment_id = $1 AND code = $2
		ORDER BY last_updated DESC
		LIMIT 1`
	if err := s.db.GetContext(ctx, &sub, q, assignmentID, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Submission{}, store.ErrNotFound
		}
		return store.Submission{}, errors.Wrap(err, "finding matching submission")
	}
	return sub, nil
}

func (s *submissionStore) ByUser(ctx context.Context, userID string) ([]store.Submission, error) {
	var subs []store.Submission
	const q = `
		SELECT * FROM submission
		WHERE user_id = $1
		ORDER BY last_updated DESC, id DESC`
	if err := s.db.SelectContext(ctx, &subs, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying user submissions")
	}
	return subs, nil
}

func (s *submissionStore) ByUserAndAssignment(ctx context.Context, userID string, assignmentID int64) ([]store.Submission, error) {
	var subs []store.Submission
	const q = `
		SELECT * FROM submission
		WHERE user_id = $1 AND assignment_id = $2
		ORDER BY last_updated DESC, id DESC`
	if err := s.db.SelectContext(ctx, &subs, q, userID, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying assignment submissions")
	}
	return subs, nil
}

func (s *submissionStore) MarkProcessed(ctx context.Context, id int64, feedback string, correct bool) (bool, error) {
	const q = `
		UPDATE submission
		SET status = $2, feedback = $3, correct = $4, last_updated = now()
		WHERE id = $1 AND status = $5`
	res, err := s.db.ExecContext(ctx, q, id, store.StatusProcessed, feedback, correct, store.StatusPending)
	if err != nil {
		return false, errors.Wrap(err, "marking submission processed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "marking submission processed")
	}
	return n == 1, nil
}

func (s *submissionStore) Score(ctx context.Context, userID string) (int, error) {
	var solved int
	const q = `
		SELECT COUNT(DISTINCT assignment_id) FROM submission
		WHERE user_id = $1 AND correct`
	if err := s.db.GetContext(ctx, &solved, q, userID); err != nil {
		return 0, errors.Wrap(err, "computing score")
	}
	return 100 * solved, nil
}
