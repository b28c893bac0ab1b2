package uploads

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps tracked uploads in process memory. It is used when
// no database is configured; records do not survive a restart.
type MemoryRepository struct {
	mu      sync.Mutex
	uploads map[string]*Upload
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{uploads: make(map[string]*Upload), now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, uploadID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.uploads[uploadID]; ok {
		return nil
	}
	now := r.now()
	r.uploads[uploadID] = &Upload{
		UploadID:  uploadID,
		Key:       key,
		State:     StateInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *MemoryRepository) AddParts(ctx context.Context, uploadID string, parts []int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[uploadID]
	if !ok {
		return ErrUploadNotFound
	}
	for _, p := range parts {
		if !slices.Contains(u.IssuedParts, p) {
			u.IssuedParts = append(u.IssuedParts, p)
		}
	}
	slices.Sort(u.IssuedParts)
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) SetState(ctx context.Context, uploadID string, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[uploadID]
	if !ok {
		return ErrUploadNotFound
	}
	u.State = state
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, uploadID string) (*Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[uploadID]
	if !ok {
		return nil, ErrUploadNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*Upload
	for _, u := range r.uploads {
		if u.State == StateInProgress && u.UpdatedAt.Before(before) {
			result = append(result, clone(u))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.Before(result[j].UpdatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, u := range r.uploads {
		if u.State != StateInProgress && u.UpdatedAt.Before(before) {
			delete(r.uploads, id)
			n++
		}
	}
	return n, nil
}

func clone(u *Upload) *Upload {
	c := *u
	c.IssuedParts = slices.Clone(u.IssuedParts)
	return &c
}
