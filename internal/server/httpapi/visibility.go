package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/megavault/internal/common"
)

type visibilityResponse struct {
	Key      string `json:"key"`
	IsPublic bool   `json:"isPublic"`
}

type toggleResponse struct {
	Message  string `json:"message"`
	IsPublic bool   `json:"isPublic"`
}

func (h *Handler) getVisibility(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := authorizeKey(h.scopeOf(r), key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	public, err := h.visibility.IsPublic(r.Context(), key)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, visibilityResponse{Key: key, IsPublic: public})
}

func (h *Handler) togglePublic(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if err := authorizeKey(h.scopeOf(r), req.Key); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	if err := h.visibility.SetPublic(r.Context(), req.Key, *req.IsPublic); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	msg := "File is now private"
	if *req.IsPublic {
		msg = "File is now public"
	}
	writeJSON(w, http.StatusOK, toggleResponse{Message: msg, IsPublic: *req.IsPublic})
}

// publicObject serves an object without authentication when it is public.
// Private and missing objects are indistinguishable to the caller.
func (h *Handler) publicObject(w http.ResponseWriter, r *http.Request) {
	key, err := wildcardKey(r)
	if err != nil || key == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	info, err := h.objects.Head(r.Context(), key)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	public, err := h.visibility.Resolve(r.Context(), key, objectFlag(info))
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	if !public {
		h.fail(r.Context(), w, common.ErrNotFound)
		return
	}

	h.streamObject(w, r, key, "inline")
}

// wildcardKey returns the decoded object key matched by a trailing wildcard.
// chi routes on RawPath when the request carries one and on the already
// decoded Path otherwise, so only the former is unescaped here.
func wildcardKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return key, nil
	}
	return url.PathUnescape(key)
}
