// Package multipart coordinates direct-to-store multipart uploads: the
// server opens the upload, hands out presigned part URLs, and assembles the
// parts once the client has PUT them. The object store owns upload state;
// the optional tracker only records what was issued.
package multipart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/logging"
	"github.com/dmitrijs2005/megavault/internal/server/objectstore"
	"github.com/dmitrijs2005/megavault/internal/server/uploads"
)

const (
	MinPartNumber = 1
	MaxPartNumber = 10000

	// PartURLExpiry is the lifetime of every presigned part URL.
	PartURLExpiry = 3600 * time.Second
)

// Store is the object-store surface used by the coordinator.
type Store interface {
	CreateMultipartUpload(ctx context.Context, key, contentType string, metadata map[string]string) (string, error)
	PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []objectstore.CompletedPart) (objectstore.CompleteResult, error)
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
	ListParts(ctx context.Context, key, uploadID string) ([]objectstore.UploadedPart, error)
}

// Tracker receives upload lifecycle events. Failures are logged and ignored.
type Tracker interface {
	Create(ctx context.Context, uploadID, key string) error
	AddParts(ctx context.Context, uploadID string, parts []int32) error
	SetState(ctx context.Context, uploadID string, state uploads.State) error
}

// PresignedURL is the upload URL for one part.
type PresignedURL struct {
	PartNumber int32  `json:"partNumber"`
	URL        string `json:"url"`
}

type Coordinator struct {
	store   Store
	tracker Tracker
	logger  logging.Logger
	ops     *prometheus.CounterVec
}

// NewCoordinator builds a coordinator. tracker may be nil; reg may be nil to
// skip metric registration.
func NewCoordinator(store Store, tracker Tracker, logger logging.Logger, reg prometheus.Registerer) *Coordinator {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "megavault_multipart_operations_total",
		Help: "Multipart upload operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	if reg != nil {
		reg.MustRegister(ops)
	}

	return &Coordinator{
		store:   store,
		tracker: tracker,
		logger:  logger.With("module", "multipart"),
		ops:     ops,
	}
}

func (c *Coordinator) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ops.WithLabelValues(op, outcome).Inc()
}

// Initiate opens a multipart upload for key. New uploads start private.
func (c *Coordinator) Initiate(ctx context.Context, key, contentType string) (uploadID string, err error) {
	defer func() { c.observe("initiate", err) }()

	uploadID, err = c.store.CreateMultipartUpload(ctx, key, contentType, map[string]string{
		common.PublicMetadataKey: "false",
	})
	if err != nil {
		return "", err
	}

	c.logger.Info(ctx, "multipart upload initiated", "key", key, "uploadId", uploadID)
	c.track(ctx, "create", func(t Tracker) error { return t.Create(ctx, uploadID, key) })

	return uploadID, nil
}

// ValidatePartNumbers rejects an empty list or numbers outside [1, 10000].
func ValidatePartNumbers(partNumbers []int32) error {
	if len(partNumbers) == 0 {
		return fmt.Errorf("%w: partNumbers must be a non-empty list", common.ErrValidation)
	}
	for _, n := range partNumbers {
		if n < MinPartNumber || n > MaxPartNumber {
			return fmt.Errorf("%w: part number %d out of range [%d, %d]", common.ErrValidation, n, MinPartNumber, MaxPartNumber)
		}
	}
	return nil
}

// PresignParts issues one upload URL per requested part number, concurrently,
// and returns them in the order requested. Issuing never changes upload
// state, so asking twice for the same part is safe.
func (c *Coordinator) PresignParts(ctx context.Context, uploadID, key string, partNumbers []int32) (urls []PresignedURL, err error) {
	defer func() { c.observe("presign", err) }()

	if err := ValidatePartNumbers(partNumbers); err != nil {
		return nil, err
	}

	urls = make([]PresignedURL, len(partNumbers))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range partNumbers {
		g.Go(func() error {
			u, err := c.store.PresignUploadPart(gctx, key, uploadID, n, PartURLExpiry)
			if err != nil {
				return err
			}
			urls[i] = PresignedURL{PartNumber: n, URL: u}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.track(ctx, "add parts", func(t Tracker) error { return t.AddParts(ctx, uploadID, partNumbers) })

	return urls, nil
}

// ValidateParts requires a non-empty list where every part has an ETag and a
// part number in range.
func ValidateParts(parts []objectstore.CompletedPart) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: parts must be a non-empty list", common.ErrValidation)
	}
	for i, p := range parts {
		if p.ETag == "" {
			return fmt.Errorf("%w: part %d has no ETag", common.ErrValidation, i)
		}
		if p.PartNumber < MinPartNumber || p.PartNumber > MaxPartNumber {
			return fmt.Errorf("%w: part %d has invalid PartNumber %d", common.ErrValidation, i, p.PartNumber)
		}
	}
	return nil
}

// Complete validates the parts, sorts them by part number and asks the store
// to assemble the object.
func (c *Coordinator) Complete(ctx context.Context, uploadID, key string, parts []objectstore.CompletedPart) (res objectstore.CompleteResult, err error) {
	defer func() { c.observe("complete", err) }()

	if err := ValidateParts(parts); err != nil {
		return objectstore.CompleteResult{}, err
	}

	sorted := slices.Clone(parts)
	slices.SortStableFunc(sorted, func(a, b objectstore.CompletedPart) int {
		return int(a.PartNumber) - int(b.PartNumber)
	})

	res, err = c.store.CompleteMultipartUpload(ctx, key, uploadID, sorted)
	if err != nil {
		return objectstore.CompleteResult{}, err
	}

	c.logger.Info(ctx, "multipart upload completed", "key", res.Key, "uploadId", uploadID, "parts", len(sorted))
	c.track(ctx, "set state", func(t Tracker) error { return t.SetState(ctx, uploadID, uploads.StateCompleted) })

	return res, nil
}

func (c *Coordinator) Abort(ctx context.Context, uploadID, key string) (err error) {
	defer func() { c.observe("abort", err) }()

	if err := c.store.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		return err
	}

	c.logger.Info(ctx, "multipart upload aborted", "key", key, "uploadId", uploadID)
	c.track(ctx, "set state", func(t Tracker) error { return t.SetState(ctx, uploadID, uploads.StateAborted) })

	return nil
}

// ListParts returns the parts the store already holds, for resuming.
func (c *Coordinator) ListParts(ctx context.Context, uploadID, key string) (parts []objectstore.UploadedPart, err error) {
	defer func() { c.observe("list_parts", err) }()
	return c.store.ListParts(ctx, key, uploadID)
}

func (c *Coordinator) track(ctx context.Context, what string, fn func(Tracker) error) {
	if c.tracker == nil {
		return
	}
	if err := fn(c.tracker); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn(ctx, "upload tracker "+what+" failed", "error", err)
	}
}
