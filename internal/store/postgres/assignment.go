package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/PenteractAI/python-practice-platform/internal/store"
)

type assignmentStore struct {
	db *sqlx.DB
}

// NewAssignmentStore returns a Postgres-backed store.AssignmentStore.
func NewAssignmentStore(db *sqlx.DB) store.AssignmentStore {
	return &assignmentStore{db: db}
}

func (s *assignmentStore) Get(ctx context.Context, id int64) (store.Assignment, error) {
	var a store.Assignment
	const q = `SELECT * FROM assignment WHERE id = $1`
	if err := s.db.GetContext(ctx, &a, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Assignment{}, store.ErrNotFound
		}
		return store.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return a, nil
}

func (s *assignmentStore) ByOrder(ctx context.Context, order int) (store.Assignment, error) {
	var a store.Assignment
	const q = `SELECT * FROM assignment WHERE ord = $1`
	if err := s.db.GetContext(ctx, &a, q, order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Assignment{}, store.ErrNotFound
		}
		return store.Assignment{}, errors.Wrap(err, "getting assignment by order")
	}
	return a, nil
}

func (s *assignmentStore) Add(ctx context.Context, a store.Assignment) (store.Assignment, error) {
	const q = `
		INSERT INTO assignment (title, ord, handout, test_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := s.db.QueryRowxContext(ctx, q, a.Title, a.Order, a.Handout, a.TestCode).Scan(&a.ID); err != nil {
		return store.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (s *assignmentStore) All(ctx context.Context) ([]store.Assignment, error) {
	var out []store.Assignment
	const q = `SELECT * FROM assignment ORDER BY ord`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return out, nil
}
