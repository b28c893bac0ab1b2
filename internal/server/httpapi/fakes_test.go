package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/server/objectstore"
)

type memObject struct {
	data []byte
	info objectstore.ObjectInfo
}

// memStore is an in-memory object store covering every surface the HTTP
// layer reaches through its services.
type memStore struct {
	mu      sync.Mutex
	objects map[string]*memObject

	pingErr        error
	completeErr    error
	completedParts []objectstore.CompletedPart
	completeCalls  int
	abortCalls     int
	presignTTLs    []time.Duration
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]*memObject{}}
}

func (m *memStore) add(key, content, contentType string, metadata map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &memObject{
		data: []byte(content),
		info: objectstore.ObjectInfo{
			Key:          key,
			Size:         int64(len(content)),
			ContentType:  contentType,
			LastModified: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Metadata:     metadata,
		},
	}
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, common.ErrNotFound)
}

func (m *memStore) Head(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return objectstore.ObjectInfo{}, notFound("head object")
	}
	return o.info, nil
}

func (m *memStore) Get(ctx context.Context, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ObjectInfo{}, notFound("get object")
	}
	return io.NopCloser(bytes.NewReader(o.data)), o.info, nil
}

func (m *memStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.add(key, string(data), contentType, metadata)
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []objectstore.ObjectInfo
	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStore) Copy(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[src]
	if !ok {
		return notFound("copy object")
	}
	c := *o
	c.info.Key = dst
	m.objects[dst] = &c
	return nil
}

func (m *memStore) ReplaceMetadata(ctx context.Context, key, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return notFound("copy object")
	}
	o.info.ContentType = contentType
	o.info.Metadata = metadata
	return nil
}

func (m *memStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://s3.test/%s?X-Amz-Expires=%d", key, int(ttl.Seconds())), nil
}

func (m *memStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *memStore) CreateMultipartUpload(ctx context.Context, key, contentType string, metadata map[string]string) (string, error) {
	return "upload-1", nil
}

func (m *memStore) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	m.mu.Lock()
	m.presignTTLs = append(m.presignTTLs, ttl)
	m.mu.Unlock()
	return fmt.Sprintf("https://s3.test/%s?uploadId=%s&partNumber=%d", key, uploadID, partNumber), nil
}

func (m *memStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []objectstore.CompletedPart) (objectstore.CompleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	m.completedParts = parts
	if m.completeErr != nil {
		return objectstore.CompleteResult{}, m.completeErr
	}
	return objectstore.CompleteResult{Key: key, Location: "https://s3.test/" + key, ETag: `"final-2"`}, nil
}

func (m *memStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abortCalls++
	return nil
}

func (m *memStore) ListParts(ctx context.Context, key, uploadID string) ([]objectstore.UploadedPart, error) {
	return []objectstore.UploadedPart{{PartNumber: 1, ETag: `"a"`, Size: 5 << 20}}, nil
}
