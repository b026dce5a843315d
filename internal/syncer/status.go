package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godilite/review-insights/pkg/cache"
)

var (
	ErrSyncNotFound = errors.New("sync not found")
	ErrSyncInFlight = errors.New("a sync is already in progress")
)

// Stage is one step of a sync as reported to progress consumers.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageDownloading Stage = "downloading"
	StageProcessing  Stage = "processing"
	StageSaving      Stage = "saving"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// Terminal reports whether no further transition follows this stage.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

type Stats struct {
	Sources    map[string]int `json:"sources"`
	Bytes      int            `json:"bytes"`
	Lines      int            `json:"lines"`
	Rows       int            `json:"rows"`
	Skipped    int            `json:"skipped"`
	Reviews    int            `json:"reviews"`
	Unresolved int            `json:"unresolved"`
	Duplicates int            `json:"duplicates"`
}

type Status struct {
	ID        string    `json:"id"`
	Status    Stage     `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Stats     *Stats    `json:"stats,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusStore keeps sync progress keyed by sync id. Entries expire after the
// store's TTL and then read as ErrSyncNotFound.
type StatusStore interface {
	Put(ctx context.Context, status Status) error
	Get(ctx context.Context, id string) (Status, error)
}

type memoryEntry struct {
	status  Status
	expires time.Time
}

// MemoryStatusStore is a process-local StatusStore.
type MemoryStatusStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStatusStore(ttl time.Duration) *MemoryStatusStore {
	return &MemoryStatusStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryStatusStore) Put(ctx context.Context, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[status.ID] = memoryEntry{status: status, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStatusStore) Get(ctx context.Context, id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return Status{}, ErrSyncNotFound
	}
	if m.ttl > 0 && !m.now().Before(e.expires) {
		delete(m.entries, id)
		return Status{}, ErrSyncNotFound
	}
	return e.status, nil
}

// Cacher is the subset of the redis cache the status store needs.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// RedisStatusStore shares sync progress between server instances.
type RedisStatusStore struct {
	cache Cacher
	ttl   time.Duration
}

func NewRedisStatusStore(c Cacher, ttl time.Duration) *RedisStatusStore {
	return &RedisStatusStore{cache: c, ttl: ttl}
}

func statusKey(id string) string {
	return "sync:status:" + id
}

func (r *RedisStatusStore) Put(ctx context.Context, status Status) error {
	if err := r.cache.Set(ctx, statusKey(status.ID), status, r.ttl); err != nil {
		return fmt.Errorf("store sync status: %w", err)
	}
	return nil
}

func (r *RedisStatusStore) Get(ctx context.Context, id string) (Status, error) {
	var status Status
	if err := r.cache.Get(ctx, statusKey(id), &status); err != nil {
		if cache.IsMiss(err) {
			return Status{}, ErrSyncNotFound
		}
		return Status{}, fmt.Errorf("load sync status: %w", err)
	}
	return status, nil
}
