package locks

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/PenteractAI/python-practice-platform/internal/storage/pebble"
)

var lockPrefix = []byte("lock/u/")

// Lock is a held per-user submission lock.
type Lock struct {
	UserID     string
	AcquiredAt time.Time
}

// Manager is a durable set of per-user locks. A user holds at most one
// lock at a time; Acquire while held fails rather than blocks. Locks have
// no TTL: they are released by the result consumer when grading completes,
// or manually via Clear.
type Manager struct {
	db *pebblestore.DB
	mu sync.Mutex
}

// NewManager returns a Manager backed by the given store.
func NewManager(db *pebblestore.DB) *Manager {
	return &Manager{db: db}
}

func lockKey(userID string) []byte {
	return append(append([]byte(nil), lockPrefix...), userID...)
}

// Acquire takes the lock for a user. It returns false if the user already
// holds one.
func (m *Manager) Acquire(userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := lockKey(userID)
	held, err := m.db.Has(key)
	if err != nil {
		return false, err
	}
	if held {
		return false, nil
	}
	var val [8]byte
	binary.BigEndian.PutUint64(val[:], uint64(time.Now().UnixMilli()))
	if err := m.db.Set(key, val[:]); err != nil {
		return false, err
	}
	return true, nil
}

// Release drops the lock for a user. Releasing a lock that is not held is
// a no-op, so release is safe to call from redelivered result handling.
func (m *Manager) Release(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Delete(lockKey(userID))
}

// Held reports whether a user currently holds a lock.
func (m *Manager) Held(userID string) (bool, error) {
	return m.db.Has(lockKey(userID))
}

// List returns all held locks, oldest user key first.
func (m *Manager) List() ([]Lock, error) {
	upper := append(append([]byte(nil), lockPrefix...), 0xFF)
	iter, err := m.db.NewIter(&pebble.IterOptions{LowerBound: lockPrefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Lock
	for ok := iter.First(); ok; ok = iter.Next() {
		key := iter.Key()
		if len(key) <= len(lockPrefix) {
			continue
		}
		l := Lock{UserID: string(key[len(lockPrefix):])}
		if v := iter.Value(); len(v) >= 8 {
			l.AcquiredAt = time.UnixMilli(int64(binary.BigEndian.Uint64(v[:8])))
		}
		out = append(out, l)
	}
	return out, nil
}

// Clear removes every held lock and returns how many were dropped. It is
// an operator escape hatch for locks stranded by a crash between dequeue
// and release.
func (m *Manager) Clear() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	held, err := m.List()
	if err != nil {
		return 0, err
	}
	b := m.db.NewBatch()
	defer b.Close()
	for _, l := range held {
		if err := b.Delete(lockKey(l.UserID), nil); err != nil {
			return 0, err
		}
	}
	if err := m.db.CommitBatch(context.Background(), b); err != nil {
		return 0, err
	}
	return len(held), nil
}
