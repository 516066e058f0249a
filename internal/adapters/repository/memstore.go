package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/pkg/metrics"
)

// snapshot is an immutable view of the catalog. Readers load it without
// locking; Replace builds a new one and swaps the pointer.
type snapshot struct {
	infos    []model.Info
	index    map[string]int
	loadedAt time.Time
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.Mutex // serialises writers
	snap     atomic.Pointer[snapshot]
	now      func() time.Time
	foldCase bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty catalog store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{now: time.Now}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.snap.Store(&snapshot{index: map[string]int{}})
	return s
}

func (s *MemoryStore) key(id string) string {
	id = strings.TrimSpace(id)
	if s.foldCase {
		return strings.ToLower(id)
	}
	return id
}

// Replace implements Store.Replace.
func (s *MemoryStore) Replace(ctx context.Context, infos []model.Info) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := &snapshot{
		infos: make([]model.Info, 0, len(infos)),
		index: make(map[string]int, len(infos)),
	}
	for _, info := range infos {
		k := s.key(info.ID)
		if k == "" {
			return ErrEmptyID
		}
		if _, dup := next.index[k]; dup {
			continue
		}
		info.ID = strings.TrimSpace(info.ID)
		info.Tags = slices.Clone(info.Tags)
		next.index[k] = len(next.infos)
		next.infos = append(next.infos, info)
	}

	s.mu.Lock()
	next.loadedAt = s.now()
	s.snap.Store(next)
	s.mu.Unlock()

	metrics.UpdateCatalogSize(len(next.infos))
	return nil
}

// List implements Store.List.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]model.Info, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCatalogQueryLatency(metrics.SinceMs(start))
	}()

	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.snap.Load()
	n := min(limit, len(snap.infos))
	out := make([]model.Info, n)
	for i := range n {
		out[i] = snap.infos[i]
		out[i].Tags = slices.Clone(snap.infos[i].Tags)
	}
	return out, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Info, error) {
	if err := ctx.Err(); err != nil {
		return model.Info{}, err
	}
	snap := s.snap.Load()
	i, ok := snap.index[s.key(id)]
	if !ok {
		return model.Info{}, ErrNotFound
	}
	info := snap.infos[i]
	info.Tags = slices.Clone(info.Tags)
	return info, nil
}

// Contains implements Store.Contains.
func (s *MemoryStore) Contains(_ context.Context, id string) bool {
	_, ok := s.snap.Load().index[s.key(id)]
	return ok
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	return len(s.snap.Load().infos)
}

// LoadedAt implements Store.LoadedAt.
func (s *MemoryStore) LoadedAt() time.Time {
	return s.snap.Load().loadedAt
}
