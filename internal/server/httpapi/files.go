package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/server/objectstore"
	"github.com/dmitrijs2005/megavault/internal/server/visibility"
)

const (
	// maxUploadSize is the single-request upload cap; larger files go
	// through the multipart routes.
	maxUploadSize      = 5 << 30
	uploadMemoryBuffer = 32 << 20

	downloadURLExpiry = 15 * time.Minute
	listConcurrency   = 8
)

type fileEntry struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	IsFolder     bool      `json:"isFolder"`
	IsPublic     bool      `json:"isPublic"`
}

type keyResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	sc := h.scopeOf(r)

	prefix := sc.Prefix()
	if p := r.URL.Query().Get("prefix"); p != "" {
		prefix = sc.Qualify(p)
	}
	if prefix != "" && !sc.Allows(prefix) {
		h.fail(r.Context(), w, common.ErrForbidden)
		return
	}

	objects, err := h.objects.List(r.Context(), prefix)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	files := make([]fileEntry, len(objects))
	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(listConcurrency)
	for i, o := range objects {
		files[i] = fileEntry{
			Key:          o.Key,
			Name:         sc.Relative(o.Key),
			Size:         o.Size,
			LastModified: o.LastModified,
			IsFolder:     strings.HasSuffix(o.Key, "/"),
		}
		if files[i].IsFolder {
			continue
		}
		g.Go(func() error {
			public, err := h.visibility.IsPublic(gctx, o.Key)
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			files[i].IsPublic = public
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	sc := h.scopeOf(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(uploadMemoryBuffer); err != nil {
		h.fail(r.Context(), w, invalid("expected a multipart form with a file field"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(r.Context(), w, invalid("file is required"))
		return
	}
	defer file.Close()

	name := path.Base(header.Filename)
	if name == "." || name == "/" || name == "" {
		h.fail(r.Context(), w, invalid("file name is required"))
		return
	}
	if folder := strings.Trim(r.FormValue("folder"), "/"); folder != "" {
		if err := cleanName(folder); err != nil {
			h.fail(r.Context(), w, err)
			return
		}
		name = folder + "/" + name
	}

	key := sc.Qualify(name)
	if err := authorizeKey(sc, key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}

	if err := h.meta.Delete(r.Context(), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	err = h.objects.Put(r.Context(), key, file, header.Size, contentType, map[string]string{
		common.PublicMetadataKey: "false",
	})
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	h.logger.Info(r.Context(), "file uploaded", "key", key, "size", header.Size)
	writeJSON(w, http.StatusOK, keyResponse{Message: "File uploaded", Key: key})
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := authorizeKey(h.scopeOf(r), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	h.streamObject(w, r, key, "attachment")
}

// streamObject copies an object to the response with its content headers.
func (h *Handler) streamObject(w http.ResponseWriter, r *http.Request, key, disposition string) {
	body, info, err := h.objects.Get(r.Context(), key)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": path.Base(key),
	}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn(r.Context(), "streaming object interrupted", "key", key, "error", err)
	}
}

type urlResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresIn"`
}

func (h *Handler) fileURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := authorizeKey(h.scopeOf(r), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	if _, err := h.objects.Head(r.Context(), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	u, err := h.objects.PresignGet(r.Context(), key, downloadURLExpiry)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, urlResponse{URL: u, ExpiresIn: int(downloadURLExpiry.Seconds())})
}

// deleteFile drops the side-store record before the object so a failure
// never leaves a stale public flag behind for a later object at the same key.
func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := authorizeKey(h.scopeOf(r), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	if _, err := h.objects.Head(r.Context(), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if err := h.meta.Delete(r.Context(), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if err := h.objects.Delete(r.Context(), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	h.logger.Info(r.Context(), "file deleted", "key", key)
	writeJSON(w, http.StatusOK, messageBody{Message: "File deleted"})
}

func (h *Handler) createFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	sc := h.scopeOf(r)
	key := sc.Qualify(strings.Trim(req.Name, "/")) + "/"
	if err := authorizeKey(sc, key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	if err := h.objects.Put(r.Context(), key, strings.NewReader(""), 0, "", nil); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, keyResponse{Message: "Folder created", Key: key})
}

// renameFile copies the object to the new key, carries its side-store
// record over and removes the original. Any record already held by the
// destination is dropped first, so the copy never inherits its visibility.
func (h *Handler) renameFile(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	sc := h.scopeOf(r)
	src, dst := req.Key, sc.Qualify(req.NewKey)
	if src == dst {
		h.fail(r.Context(), w, invalid("newKey must differ from key"))
		return
	}
	if err := firstErr(authorizeKey(sc, src), authorizeKey(sc, dst)); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	ctx := r.Context()
	rec, err := h.meta.Get(ctx, src)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	if err := h.meta.Delete(ctx, dst); err != nil {
		h.fail(ctx, w, err)
		return
	}
	if err := h.objects.Copy(ctx, src, dst); err != nil {
		h.fail(ctx, w, err)
		return
	}

	if rec.Found {
		if err := h.meta.SetPublic(ctx, dst, rec.IsPublic); err != nil {
			h.fail(ctx, w, err)
			return
		}
	}
	if err := h.meta.Delete(ctx, src); err != nil {
		h.fail(ctx, w, err)
		return
	}
	if err := h.objects.Delete(ctx, src); err != nil {
		h.fail(ctx, w, fmt.Errorf("rename %q: copied but original not removed: %w", src, err))
		return
	}

	h.logger.Info(ctx, "file renamed", "from", src, "to", dst)
	writeJSON(w, http.StatusOK, keyResponse{Message: "File renamed", Key: dst})
}

// objectFlag is the object-metadata half of the visibility OR.
func objectFlag(info objectstore.ObjectInfo) bool {
	return visibility.ObjectFlag(info.Metadata)
}
