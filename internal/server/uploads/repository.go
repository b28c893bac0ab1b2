// Package uploads tracks in-flight multipart uploads for observability and
// for cleaning up uploads that were started but never finished. The object
// store stays the owner of upload state; this table is advisory.
package uploads

import (
	"context"
	"errors"
	"time"
)

type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
)

var ErrUploadNotFound = errors.New("tracked upload not found")

// Upload is one tracked multipart upload.
type Upload struct {
	UploadID    string
	Key         string
	State       State
	IssuedParts []int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	// Create registers a new in-progress upload. Re-registering an id is a no-op.
	Create(ctx context.Context, uploadID, key string) error
	// AddParts records part numbers a URL was issued for. Duplicates are ignored.
	AddParts(ctx context.Context, uploadID string, parts []int32) error
	SetState(ctx context.Context, uploadID string, state State) error
	Get(ctx context.Context, uploadID string) (*Upload, error)
	// ListStale returns in-progress uploads with no activity since the cutoff,
	// least recently active first.
	ListStale(ctx context.Context, before time.Time, limit int) ([]*Upload, error)
	// Prune deletes completed and aborted uploads last updated before the cutoff.
	Prune(ctx context.Context, before time.Time) (int, error)
}
