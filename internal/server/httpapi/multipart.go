package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/megavault/internal/server/multipart"
)

type initiateResponse struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

type presignResponse struct {
	PresignedURLs []multipart.PresignedURL `json:"presignedUrls"`
}

type completeResponse struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	ETag     string `json:"etag"`
}

type partEntry struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
	Size       int64  `json:"size"`
}

func (h *Handler) initiateMultipart(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	sc := h.scopeOf(r)
	key := sc.Qualify(req.Key)
	if err := authorizeKey(sc, key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	uploadID, err := h.multipart.Initiate(r.Context(), key, req.ContentType)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, initiateResponse{UploadID: uploadID, Key: key})
}

func (h *Handler) presignParts(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if err := authorizeKey(h.scopeOf(r), req.Key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	urls, err := h.multipart.PresignParts(r.Context(), req.UploadID, req.Key, req.PartNumbers)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, presignResponse{PresignedURLs: urls})
}

func (h *Handler) completeMultipart(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if err := authorizeKey(h.scopeOf(r), req.Key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	// The assembled object replaces whatever was at the key, including a
	// side-store public flag left by the previous one.
	if err := h.meta.Delete(r.Context(), req.Key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	res, err := h.multipart.Complete(r.Context(), req.UploadID, req.Key, req.completedParts())
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{Key: res.Key, Location: res.Location, ETag: res.ETag})
}

func (h *Handler) abortMultipart(w http.ResponseWriter, r *http.Request) {
	var req abortRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if err := authorizeKey(h.scopeOf(r), req.Key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	if err := h.multipart.Abort(r.Context(), req.UploadID, req.Key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageBody{Message: "Upload aborted"})
}

func (h *Handler) listParts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uploadID, key := q.Get("uploadId"), q.Get("key")
	if err := required("uploadId", uploadID); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if err := authorizeKey(h.scopeOf(r), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	parts, err := h.multipart.ListParts(r.Context(), uploadID, key)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	out := make([]partEntry, 0, len(parts))
	for _, p := range parts {
		out = append(out, partEntry{PartNumber: p.PartNumber, ETag: p.ETag, Size: p.Size})
	}
	writeJSON(w, http.StatusOK, map[string]any{"parts": out})
}
