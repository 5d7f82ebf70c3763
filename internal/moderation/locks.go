package moderation

import (
	"sort"
	"sync"
	"time"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/news"
)

// Lock records who is editing a post.
type Lock struct {
	PostID     news.ID   `json:"post_id"`
	Holder     int64     `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// LockManager grants at most one holder per post. State is process-local.
type LockManager struct {
	mu    sync.Mutex
	locks map[news.ID]Lock
}

func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[news.ID]Lock)}
}

// Acquire succeeds when the post is free or already held by holder.
func (m *LockManager) Acquire(id news.ID, holder int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.locks[id]; ok {
		return current.Holder == holder
	}
	m.locks[id] = Lock{PostID: id, Holder: holder, AcquiredAt: globaltime.UTC()}
	return true
}

// Release drops the lock if holder owns it.
func (m *LockManager) Release(id news.ID, holder int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.locks[id]
	if !ok || current.Holder != holder {
		return false
	}
	delete(m.locks, id)
	return true
}

func (m *LockManager) Holder(id news.ID) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.locks[id]
	return current.Holder, ok
}

// Snapshot lists current locks ordered by post id.
func (m *LockManager) Snapshot() []Lock {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Lock, 0, len(m.locks))
	for _, lock := range m.locks {
		out = append(out, lock)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostID < out[j].PostID })
	return out
}
