package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PenteractAI/python-practice-platform/internal/store"
)

// DB is an in-memory database shared by the in-memory stores. It backs
// tests and database-less demo runs.
type DB struct {
	mu sync.RWMutex

	subSeq      int64
	submissions map[int64]*store.Submission

	asgSeq      int64
	assignments map[int64]*store.Assignment
}

// NewDB returns an empty in-memory database.
func NewDB() *DB {
	return &DB{
		submissions: make(map[int64]*store.Submission),
		assignments: make(map[int64]*store.Assignment),
	}
}

type submissionStore struct {
	db *DB
}

// NewSubmissionStore returns an in-memory store.SubmissionStore.
func NewSubmissionStore(db *DB) store.SubmissionStore {
	return &submissionStore{db: db}
}

func (s *submissionStore) Create(_ context.Context, sub store.Submission) (store.Submission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if sub.Status == "" {
		sub.Status = store.StatusPending
	}
	s.db.subSeq++
	sub.ID = s.db.subSeq
	sub.LastUpdated = time.Now()
	cp := sub
	s.db.submissions[sub.ID] = &cp
	return sub, nil
}

func (s *submissionStore) Get(_ context.Context, id int64) (store.Submission, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if sub, ok := s.db.submissions[id]; ok {
		return *sub, nil
	}
	return store.Submission{}, store.ErrNotFound
}

// newestFirst sorts by last update, breaking ties by descending ID so
// rows created in the same instant keep insertion order.
func newestFirst(subs []store.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].LastUpdated.Equal(subs[j].LastUpdated) {
			return subs[i].LastUpdated.After(subs[j].LastUpdated)
		}
		return subs[i].ID > subs[j].ID
	})
}

func (s *submissionStore) query(match func(store.Submission) bool) []store.Submission {
	var out []store.Submission
	for _, sub := range s.db.submissions {
		if match(*sub) {
			out = append(out, *sub)
		}
	}
	newestFirst(out)
	return out
}

func (s *submissionStore) FindMatch(_ context.Context, assignmentID int64, code string) (store.Submission, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	matches := s.query(func(sub store.Submission) bool {
		return sub.AssignmentID == assignmentID && sub.Code == code
	})
	if len(matches) == 0 {
		return store.Submission{}, store.ErrNotFound
	}
	return matches[0], nil
}

func (s *submissionStore) ByUser(_ context.Context, userID string) ([]store.Submission, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	return s.query(func(sub store.Submission) bool { return sub.UserID == userID }), nil
}

func (s *submissionStore) ByUserAndAssignment(_ context.Context, userID string, assignmentID int64) ([]store.Submission, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	return s.query(func(sub store.Submission) bool {
		return sub.UserID == userID && sub.AssignmentID == assignmentID
	}), nil
}

func (s *submissionStore) MarkProcessed(_ context.Context, id int64, feedback string, correct bool) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sub, ok := s.db.submissions[id]
	if !ok || sub.Status != store.StatusPending {
		return false, nil
	}
	sub.Status = store.StatusProcessed
	sub.Feedback = feedback
	sub.Correct = correct
	sub.LastUpdated = time.Now()
	return true, nil
}

func (s *submissionStore) Score(_ context.Context, userID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	solved := make(map[int64]struct{})
	for _, sub := range s.db.submissions {
		if sub.UserID == userID && sub.Correct {
			solved[sub.AssignmentID] = struct{}{}
		}
	}
	return 100 * len(solved), nil
}

type assignmentStore struct {
	db *DB
}

// NewAssignmentStore returns an in-memory store.AssignmentStore.
func NewAssignmentStore(db *DB) store.AssignmentStore {
	return &assignmentStore{db: db}
}

func (s *assignmentStore) Get(_ context.Context, id int64) (store.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if a, ok := s.db.assignments[id]; ok {
		return *a, nil
	}
	return store.Assignment{}, store.ErrNotFound
}

func (s *assignmentStore) ByOrder(_ context.Context, order int) (store.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, a := range s.db.assignments {
		if a.Order == order {
			return *a, nil
		}
	}
	return store.Assignment{}, store.ErrNotFound
}

func (s *assignmentStore) Add(_ context.Context, a store.Assignment) (store.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.asgSeq++
	a.ID = s.db.asgSeq
	cp := a
	s.db.assignments[a.ID] = &cp
	return a, nil
}

func (s *assignmentStore) All(_ context.Context) ([]store.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]store.Assignment, 0, len(s.db.assignments))
	for _, a := range s.db.assignments {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}
