// Package objectstore wraps the S3-compatible object store behind the
// operations MegaVault needs: object CRUD, metadata rewrite, listing,
// multipart uploads and presigned URLs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/megavault/internal/common"
)

// API is the subset of *s3.Client used by the gateway.
type API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	ListParts(ctx context.Context, in *s3.ListPartsInput, optFns ...func(*s3.Options)) (*s3.ListPartsOutput, error)
}

// Presigner is the subset of *s3.PresignClient used by the gateway.
type Presigner interface {
	PresignUploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectInfo describes a stored object. Metadata keys are lower-case and
// carry no "x-amz-meta-" prefix.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
	Metadata     map[string]string
}

// CompletedPart is one uploaded part of a multipart upload.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// UploadedPart is a part the store already holds for an in-flight upload.
type UploadedPart struct {
	PartNumber   int32
	ETag         string
	Size         int64
	LastModified time.Time
}

// CompleteResult is returned by a successful multipart completion.
type CompleteResult struct {
	Key      string
	Location string
	ETag     string
}

type Gateway struct {
	api       API
	presigner Presigner
	bucket    string
}

func New(api API, presigner Presigner, bucket string) *Gateway {
	return &Gateway{api: api, presigner: presigner, bucket: bucket}
}

// Bucket is the bucket every operation targets.
func (g *Gateway) Bucket() string {
	return g.bucket
}

// Ping checks that the bucket is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(g.bucket)})
	return mapError("head bucket", err)
}

func (g *Gateway) Head(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := g.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, mapError("head object", err)
	}

	return ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		Metadata:     out.Metadata,
	}, nil
}

// Get opens the object for reading. The caller must close the body.
func (g *Gateway) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	out, err := g.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ObjectInfo{}, mapError("get object", err)
	}

	return out.Body, ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		Metadata:     out.Metadata,
	}, nil
}

// Put stores body under key. size may be -1 when unknown.
func (g *Gateway) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	_, err := g.api.PutObject(ctx, in)
	return mapError("put object", err)
}

func (g *Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	return mapError("delete object", err)
}

// List returns every object under prefix, following continuation tokens.
func (g *Gateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	p := s3.NewListObjectsV2Paginator(g.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []ObjectInfo
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, mapError("list objects", err)
		}
		for _, o := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
				ETag:         aws.ToString(o.ETag),
			})
		}
	}

	return objects, nil
}

// ReplaceMetadata rewrites key onto itself with a new metadata map. The
// content type must be passed explicitly since REPLACE drops it otherwise.
func (g *Gateway) ReplaceMetadata(ctx context.Context, key, contentType string, metadata map[string]string) error {
	in := &s3.CopyObjectInput{
		Bucket:            aws.String(g.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(copySource(g.bucket, key)),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	_, err := g.api.CopyObject(ctx, in)
	return mapError("copy object", err)
}

// Copy duplicates src to dst, keeping metadata.
func (g *Gateway) Copy(ctx context.Context, src, dst string) error {
	_, err := g.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(g.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(copySource(g.bucket, src)),
	})
	return mapError("copy object", err)
}

func (g *Gateway) CreateMultipartUpload(ctx context.Context, key, contentType string, metadata map[string]string) (string, error) {
	in := &s3.CreateMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		Metadata: metadata,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := g.api.CreateMultipartUpload(ctx, in)
	if err != nil {
		return "", mapError("create multipart upload", err)
	}

	return aws.ToString(out.UploadId), nil
}

// PresignUploadPart returns a URL the client can PUT one part to directly.
func (g *Gateway) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	req, err := g.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(g.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign upload part %d: %w: %w", partNumber, common.ErrUpstream, err)
	}

	return req.URL, nil
}

// PresignGet returns a time-boxed download URL for key.
func (g *Gateway) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := g.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w: %w", common.ErrUpstream, err)
	}

	return req.URL, nil
}

// CompleteMultipartUpload submits parts exactly in the given order.
func (g *Gateway) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) (CompleteResult, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		})
	}

	out, err := g.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return CompleteResult{}, mapError("complete multipart upload", err)
	}

	res := CompleteResult{
		Key:      aws.ToString(out.Key),
		Location: aws.ToString(out.Location),
		ETag:     aws.ToString(out.ETag),
	}
	if res.Key == "" {
		res.Key = key
	}

	return res, nil
}

func (g *Gateway) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := g.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	return mapError("abort multipart upload", err)
}

// ListParts returns the parts already uploaded, ascending by part number.
func (g *Gateway) ListParts(ctx context.Context, key, uploadID string) ([]UploadedPart, error) {
	in := &s3.ListPartsInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	}

	var parts []UploadedPart
	for {
		out, err := g.api.ListParts(ctx, in)
		if err != nil {
			return nil, mapError("list parts", err)
		}

		for _, p := range out.Parts {
			parts = append(parts, UploadedPart{
				PartNumber:   aws.ToInt32(p.PartNumber),
				ETag:         aws.ToString(p.ETag),
				Size:         aws.ToInt64(p.Size),
				LastModified: aws.ToTime(p.LastModified),
			})
		}

		if !aws.ToBool(out.IsTruncated) || aws.ToString(out.NextPartNumberMarker) == "" {
			break
		}
		in.PartNumberMarker = out.NextPartNumberMarker
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

// copySource builds the URL-encoded "bucket/key" value CopyObject expects.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// mapError translates store errors into the common taxonomy. nil stays nil.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%s: %w", op, common.ErrNotFound)
		case "NoSuchUpload":
			return fmt.Errorf("%s: %w", op, common.ErrNoSuchUpload)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, common.ErrUpstream, err)
}
