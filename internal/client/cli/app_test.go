package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/megavault/internal/client/client"
	"github.com/dmitrijs2005/megavault/internal/client/config"
	"github.com/dmitrijs2005/megavault/internal/client/services"
)

const folder = "single-user-folder/"

// fakeServer emulates the MegaVault API and the object store part URLs.
type fakeServer struct {
	mu      sync.Mutex
	objects map[string]string
	public  map[string]bool
	parts   map[int32]string
	aborted bool
	url     string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{objects: map[string]string{}, public: map[string]bool{}, parts: map[int32]string{}}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	fs.url = srv.URL
	return fs
}

func (fs *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if r.URL.Path != "/api/auth/login" && r.URL.Path != "/healthz" && !strings.HasPrefix(r.URL.Path, "/part/") &&
		r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
		return
	}

	var body map[string]any
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	key := r.URL.Query().Get("key")

	switch r.URL.Path {
	case "/healthz":
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	case "/api/auth/login":
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
			return
		}
		_, _ = io.WriteString(w, `{"message":"Logged in","token":"tok"}`)
	case "/api/auth/logout":
		_, _ = io.WriteString(w, `{"message":"Logged out"}`)
	case "/api/storage/config":
		_, _ = io.WriteString(w, `{"mode":"folder","userFolderId":"single-user-folder"}`)
	case "/api/files":
		if r.Method == http.MethodDelete {
			if _, ok := fs.objects[key]; !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"error":"not found"}`)
				return
			}
			delete(fs.objects, key)
			_, _ = io.WriteString(w, `{"message":"File deleted"}`)
			return
		}
		files := []client.File{}
		for k, v := range fs.objects {
			files = append(files, client.File{Key: k, Name: strings.TrimPrefix(k, folder), Size: int64(len(v)), IsPublic: fs.public[k]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	case "/api/files/download":
		v, ok := fs.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"not found"}`)
			return
		}
		_, _ = io.WriteString(w, v)
	case "/api/toggle-public":
		fs.public[body["key"].(string)] = body["isPublic"].(bool)
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	case "/api/multipart/initiate":
		_ = json.NewEncoder(w).Encode(map[string]string{"uploadId": "u-1", "key": folder + body["key"].(string)})
	case "/api/multipart/presigned-urls":
		var urls []client.PartURL
		for _, n := range body["partNumbers"].([]any) {
			pn := int32(n.(float64))
			urls = append(urls, client.PartURL{PartNumber: pn, URL: fs.url + "/part/" + string(rune('0'+pn))})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"presignedUrls": urls})
	case "/api/multipart/complete":
		var sb strings.Builder
		for _, p := range body["parts"].([]any) {
			sb.WriteString(fs.parts[int32(p.(map[string]any)["PartNumber"].(float64))])
		}
		fs.objects[body["key"].(string)] = sb.String()
		_ = json.NewEncoder(w).Encode(map[string]string{"key": body["key"].(string)})
	case "/api/multipart/abort":
		fs.aborted = true
		_, _ = io.WriteString(w, `{"message":"Upload aborted"}`)
	default:
		if strings.HasPrefix(r.URL.Path, "/part/") {
			data, _ := io.ReadAll(r.Body)
			pn := int32(r.URL.Path[len("/part/")] - '0')
			fs.parts[pn] = string(data)
			w.Header().Set("ETag", `"e"`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestApp(t *testing.T, fs *fakeServer, input string) (*App, *bytes.Buffer) {
	t.Helper()

	origRead, origTerm := readPassword, isTerminal
	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }
	isTerminal = func(int) bool { return true }
	t.Cleanup(func() { readPassword, isTerminal = origRead, origTerm })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = fs.url
	cfg.RequestTimeout = 5 * time.Second

	var out bytes.Buffer
	app := NewApp(cfg, strings.NewReader(input), &out)
	// small parts so the upload below spans several of them
	app.uploader = services.NewUploader(app.api, 8, 2)
	return app, &out
}

func login(t *testing.T, app *App) {
	t.Helper()
	require.NoError(t, app.Login(context.Background()))
	assert.True(t, app.isLoggedIn())
	assert.Equal(t, "(me@example.com)", app.getStatus())
}

func TestLogin(t *testing.T) {
	fs := newFakeServer(t)
	app, _ := newTestApp(t, fs, "me@example.com\n")

	login(t, app)
	assert.Equal(t, folder, app.prefix)

	require.NoError(t, app.Logout(context.Background()))
	assert.False(t, app.isLoggedIn())
	assert.Empty(t, app.prefix)
}

func TestLogin_Rejected(t *testing.T) {
	fs := newFakeServer(t)
	app, _ := newTestApp(t, fs, "me@example.com\n")
	readPassword = func(int) ([]byte, error) { return []byte("wrong"), nil }

	err := app.Login(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, app.isLoggedIn())
}

func TestPutGetShareRemove(t *testing.T) {
	fs := newFakeServer(t)
	app, out := newTestApp(t, fs, "me@example.com\n")
	login(t, app)
	ctx := context.Background()

	dir := t.TempDir()
	local := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello multipart world"), 0o600))

	require.NoError(t, app.Put(ctx, []string{local, "docs/notes.txt"}))
	assert.Equal(t, "hello multipart world", fs.objects[folder+"docs/notes.txt"])
	assert.Contains(t, out.String(), "Uploaded "+folder+"docs/notes.txt")

	require.NoError(t, app.Share(ctx, []string{"docs/notes.txt"}))
	assert.True(t, fs.public[folder+"docs/notes.txt"])
	assert.Contains(t, out.String(), fs.url+"/public/"+folder+"docs/notes.txt")

	require.NoError(t, app.List(ctx, nil))
	assert.Contains(t, out.String(), "docs/notes.txt")
	assert.Contains(t, out.String(), "yes")

	require.NoError(t, app.Unshare(ctx, []string{folder + "docs/notes.txt"}))
	assert.False(t, fs.public[folder+"docs/notes.txt"])

	dst := filepath.Join(dir, "copy.txt")
	require.NoError(t, app.Get(ctx, []string{"docs/notes.txt", dst}))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello multipart world", string(data))

	require.NoError(t, app.Remove(ctx, []string{"docs/notes.txt"}))
	assert.Empty(t, fs.objects)

	err = app.Remove(ctx, []string{"docs/notes.txt"})
	assert.ErrorIs(t, err, client.ErrNotFound)

	missing := filepath.Join(dir, "missing.txt")
	err = app.Get(ctx, []string{"docs/notes.txt", missing})
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.NoFileExists(t, missing)
}

func TestCommandUsage(t *testing.T) {
	fs := newFakeServer(t)
	app, _ := newTestApp(t, fs, "")
	ctx := context.Background()

	assert.ErrorIs(t, app.Put(ctx, nil), errUsage)
	assert.ErrorIs(t, app.Get(ctx, []string{"only-key"}), errUsage)
	assert.ErrorIs(t, app.Remove(ctx, nil), errUsage)
	assert.ErrorIs(t, app.Share(ctx, []string{"a", "b"}), errUsage)
	assert.ErrorIs(t, app.Unshare(ctx, nil), errUsage)

	err := app.Put(ctx, []string{t.TempDir()})
	assert.ErrorContains(t, err, "is a directory")
}

func TestRun(t *testing.T) {
	fs := newFakeServer(t)
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	app, out := newTestApp(t, fs, "me@example.com\nls\nexit\n")
	app.Run(context.Background())

	assert.Contains(t, out.String(), "Welcome to MegaVault CLI")
	assert.True(t, app.isLoggedIn())
	assert.Contains(t, out.String(), "NAME")
}
