package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client())
}

func TestLogin_StoresToken(t *testing.T) {
	var gotAuth []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "me@example.com", body["email"])
			assert.Equal(t, "pw", body["password"])
			_, _ = io.WriteString(w, `{"message":"Logged in","token":"tok-1"}`)
		case "/api/files":
			assert.Equal(t, "docs/", r.URL.Query().Get("prefix"))
			_, _ = io.WriteString(w, `{"files":[{"key":"f/docs/a.txt","name":"docs/a.txt","size":3,"isPublic":true}]}`)
		}
	})

	require.NoError(t, c.Login(context.Background(), "me@example.com", []byte("pw")))
	assert.Equal(t, "tok-1", c.Token())

	files, err := c.List(context.Background(), "docs/")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "docs/a.txt", files[0].Name)
	assert.True(t, files[0].IsPublic)

	assert.Equal(t, []string{"", "Bearer tok-1"}, gotAuth)
}

func TestErrors(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("key") {
		case "forbidden":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":"access to this key is not allowed"}`)
		case "missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"not found"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `not json`)
		}
	})

	err := c.Delete(context.Background(), "forbidden")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.EqualError(t, err, "server returned 403: access to this key is not allowed")

	_, err = c.Download(context.Background(), "missing", io.Discard)
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.Delete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualError(t, err, "server returned 401")
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL, srv.Client())
	srv.Close()

	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestDownload(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/download", r.URL.Path)
		assert.Equal(t, "f/a b.txt", r.URL.Query().Get("key"))
		_, _ = io.WriteString(w, "content")
	})

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "f/a b.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "content", buf.String())
}

func TestMultipartCalls(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil && r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		switch r.URL.Path {
		case "/api/multipart/initiate":
			assert.Equal(t, "video.mp4", body["key"])
			assert.Equal(t, "video/mp4", body["contentType"])
			_, _ = io.WriteString(w, `{"uploadId":"u-1","key":"f/video.mp4"}`)
		case "/api/multipart/presigned-urls":
			assert.Equal(t, []any{float64(2), float64(1)}, body["partNumbers"])
			_, _ = io.WriteString(w, `{"presignedUrls":[{"partNumber":2,"url":"http://s3/2"},{"partNumber":1,"url":"http://s3/1"}]}`)
		case "/api/multipart/complete":
			parts := body["parts"].([]any)
			assert.Equal(t, map[string]any{"ETag": `"e1"`, "PartNumber": float64(1)}, parts[0])
			_, _ = io.WriteString(w, `{"key":"f/video.mp4","location":"http://s3/f/video.mp4","etag":"\"x-2\""}`)
		case "/api/multipart/abort":
			assert.Equal(t, "u-1", body["uploadId"])
			_, _ = io.WriteString(w, `{"message":"Upload aborted"}`)
		case "/part":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Empty(t, r.Header.Get("Authorization"))
			data, _ := io.ReadAll(r.Body)
			assert.Equal(t, "abc", string(data))
			w.Header().Set("ETag", `"e1"`)
		}
	})
	c.SetToken("tok")
	ctx := context.Background()

	up, err := c.Initiate(ctx, "video.mp4", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, Upload{UploadID: "u-1", Key: "f/video.mp4"}, up)

	urls, err := c.PresignParts(ctx, up.UploadID, up.Key, []int32{2, 1})
	require.NoError(t, err)
	assert.Equal(t, []PartURL{{PartNumber: 2, URL: "http://s3/2"}, {PartNumber: 1, URL: "http://s3/1"}}, urls)

	etag, err := c.UploadPart(ctx, c.baseURL+"/part", strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, `"e1"`, etag)

	res, err := c.Complete(ctx, up.UploadID, up.Key, []Part{{ETag: `"e1"`, PartNumber: 1}})
	require.NoError(t, err)
	assert.Equal(t, "f/video.mp4", res.Key)

	require.NoError(t, c.Abort(ctx, up.UploadID, up.Key))
}

func TestUploadPart_MissingETag(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.UploadPart(context.Background(), c.baseURL+"/part", strings.NewReader("x"), 1)
	assert.ErrorContains(t, err, "no ETag")
}

func TestPublicURL(t *testing.T) {
	c := New("https://vault.example.com/", nil)
	assert.Equal(t, "https://vault.example.com/public/f/my%20docs/a.txt", c.PublicURL("f/my docs/a.txt"))
}

func TestStorageConfig(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/storage/config", r.URL.Path)
		_, _ = io.WriteString(w, `{"mode":"folder","userFolderId":"single-user-folder"}`)
	})

	sc, err := c.StorageConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "single-user-folder/", sc.Prefix())
	assert.Empty(t, StorageConfig{Mode: "bucket", UserFolderID: "x"}.Prefix())
}
