// Package visibility resolves and toggles whether an object is publicly
// readable. An object is public when either its own "is-public" metadata or
// its side-store record says so.
package visibility

import (
	"context"
	"fmt"
	"maps"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/logging"
	"github.com/dmitrijs2005/megavault/internal/server/metastore"
	"github.com/dmitrijs2005/megavault/internal/server/objectstore"
)

// Objects is the object-store surface the service needs.
type Objects interface {
	Head(ctx context.Context, key string) (objectstore.ObjectInfo, error)
	ReplaceMetadata(ctx context.Context, key, contentType string, metadata map[string]string) error
}

// PartialError reports a toggle whose object metadata was rewritten but whose
// side-store write failed. Repeating the toggle with the same target converges.
type PartialError struct {
	Key      string
	IsPublic bool
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("visibility of %q: object metadata updated but side-store write failed: %v", e.Key, e.Err)
}

func (e *PartialError) Unwrap() []error {
	return []error{common.ErrPartiallyApplied, e.Err}
}

type Service struct {
	objects Objects
	meta    metastore.Store
	logger  logging.Logger
}

func NewService(objects Objects, meta metastore.Store, logger logging.Logger) *Service {
	return &Service{objects: objects, meta: meta, logger: logger.With("module", "visibility")}
}

// ObjectFlag reads the "is-public" metadata value of an object.
func ObjectFlag(metadata map[string]string) bool {
	return metadata[common.PublicMetadataKey] == "true"
}

// IsPublic reads both sources concurrently and ORs them. A missing object is
// ErrNotFound regardless of the side-store.
func (s *Service) IsPublic(ctx context.Context, key string) (bool, error) {
	var (
		rec  metastore.Record
		info objectstore.ObjectInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.meta.Get(gctx, key)
		return err
	})
	g.Go(func() error {
		var err error
		info, err = s.objects.Head(gctx, key)
		return err
	})

	if err := g.Wait(); err != nil {
		return false, err
	}

	return rec.IsPublic || ObjectFlag(info.Metadata), nil
}

// Resolve ORs an already known object flag with the side-store record.
func (s *Service) Resolve(ctx context.Context, key string, objectFlag bool) (bool, error) {
	if objectFlag {
		return true, nil
	}
	rec, err := s.meta.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return rec.IsPublic, nil
}

// SetPublic rewrites the object's metadata in place and then records the new
// state in the side-store. A side-store failure yields *PartialError.
func (s *Service) SetPublic(ctx context.Context, key string, isPublic bool) error {
	info, err := s.objects.Head(ctx, key)
	if err != nil {
		return err
	}

	metadata := make(map[string]string, len(info.Metadata)+1)
	maps.Copy(metadata, info.Metadata)
	metadata[common.PublicMetadataKey] = fmt.Sprintf("%t", isPublic)

	if err := s.objects.ReplaceMetadata(ctx, key, info.ContentType, metadata); err != nil {
		return err
	}

	if err := s.meta.SetPublic(ctx, key, isPublic); err != nil {
		s.logger.Error(ctx, "side-store write failed after metadata update", "key", key, "isPublic", isPublic, "error", err)
		return &PartialError{Key: key, IsPublic: isPublic, Err: err}
	}

	s.logger.Info(ctx, "visibility changed", "key", key, "isPublic", isPublic)
	return nil
}
