package services

import (
	"context"
	"fmt"
	"io"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/megavault/internal/client/client"
)

const (
	maxParts = 10000
	// presignBatch bounds the number of URLs requested per call.
	presignBatch = 100
)

// MultipartAPI is the part of the API client used for multipart uploads.
type MultipartAPI interface {
	Initiate(ctx context.Context, key, contentType string) (client.Upload, error)
	PresignParts(ctx context.Context, uploadID, key string, partNumbers []int32) ([]client.PartURL, error)
	UploadPart(ctx context.Context, partURL string, body io.Reader, size int64) (string, error)
	Complete(ctx context.Context, uploadID, key string, parts []client.Part) (client.Completed, error)
	Abort(ctx context.Context, uploadID, key string) error
}

// Uploader sends files through the multipart routes, uploading parts
// directly to the object store with presigned URLs.
type Uploader struct {
	api         MultipartAPI
	partSize    int64
	concurrency int
}

func NewUploader(api MultipartAPI, partSize int64, concurrency int) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Uploader{api: api, partSize: partSize, concurrency: concurrency}
}

// partCount is the number of parts for size bytes. An empty file still
// takes one (empty) part.
func (u *Uploader) partCount(size int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + u.partSize - 1) / u.partSize)
}

// Upload stores size bytes of r under key. If anything fails after the upload
// was initiated it is aborted, so no orphaned parts are left behind.
func (u *Uploader) Upload(ctx context.Context, r io.ReaderAt, size int64, key, contentType string) (client.Completed, error) {
	n := u.partCount(size)
	if n > maxParts {
		return client.Completed{}, fmt.Errorf("file needs %d parts, the limit is %d; use a larger part size", n, maxParts)
	}

	up, err := u.api.Initiate(ctx, key, contentType)
	if err != nil {
		return client.Completed{}, fmt.Errorf("initiate: %w", err)
	}

	res, err := u.uploadParts(ctx, up, r, size, n)
	if err != nil {
		if abortErr := u.api.Abort(context.WithoutCancel(ctx), up.UploadID, up.Key); abortErr != nil {
			return client.Completed{}, fmt.Errorf("%w (abort failed: %v)", err, abortErr)
		}
		return client.Completed{}, err
	}
	return res, nil
}

func (u *Uploader) uploadParts(ctx context.Context, up client.Upload, r io.ReaderAt, size int64, n int) (client.Completed, error) {
	parts := make([]client.Part, n)

	for start := 0; start < n; start += presignBatch {
		end := min(start+presignBatch, n)

		numbers := make([]int32, 0, end-start)
		for i := start; i < end; i++ {
			numbers = append(numbers, int32(i+1))
		}

		urls, err := u.api.PresignParts(ctx, up.UploadID, up.Key, numbers)
		if err != nil {
			return client.Completed{}, fmt.Errorf("presign parts: %w", err)
		}
		if len(urls) != len(numbers) {
			return client.Completed{}, fmt.Errorf("presign parts: asked for %d urls, got %d", len(numbers), len(urls))
		}

		for _, pu := range urls {
			if idx := int(pu.PartNumber) - 1; idx < start || idx >= end {
				return client.Completed{}, fmt.Errorf("presign parts: unexpected part number %d", pu.PartNumber)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(u.concurrency)
		for _, pu := range urls {
			idx := int(pu.PartNumber) - 1
			off := int64(idx) * u.partSize
			length := min(u.partSize, size-off)
			if length < 0 {
				length = 0
			}

			g.Go(func() error {
				etag, err := u.api.UploadPart(gctx, pu.URL, io.NewSectionReader(r, off, length), length)
				if err != nil {
					return fmt.Errorf("upload part %d: %w", pu.PartNumber, err)
				}
				parts[idx] = client.Part{ETag: etag, PartNumber: pu.PartNumber}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return client.Completed{}, err
		}
	}

	slices.SortFunc(parts, func(a, b client.Part) int { return int(a.PartNumber - b.PartNumber) })

	res, err := u.api.Complete(ctx, up.UploadID, up.Key, parts)
	if err != nil {
		return client.Completed{}, fmt.Errorf("complete: %w", err)
	}
	return res, nil
}
