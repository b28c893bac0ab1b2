// Package httpapi exposes MegaVault over HTTP/JSON. Every key-taking route
// authenticates the caller, validates the body, checks the key against the
// caller's scope and then delegates to the storage services.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/logging"
	"github.com/dmitrijs2005/megavault/internal/server/auth"
	"github.com/dmitrijs2005/megavault/internal/server/metastore"
	"github.com/dmitrijs2005/megavault/internal/server/multipart"
	"github.com/dmitrijs2005/megavault/internal/server/objectstore"
	"github.com/dmitrijs2005/megavault/internal/server/scope"
	"github.com/dmitrijs2005/megavault/internal/server/visibility"
)

// Objects is the object-store surface used by the file routes.
type Objects interface {
	Head(ctx context.Context, key string) (objectstore.ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, objectstore.ObjectInfo, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error)
	Copy(ctx context.Context, src, dst string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Auth       *auth.Service
	Scopes     *scope.Resolver
	Objects    Objects
	Meta       metastore.Store
	Visibility *visibility.Service
	Multipart  *multipart.Coordinator
	Logger     logging.Logger
	// Registry receives the HTTP metrics and is served on /metrics.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
}

type Handler struct {
	auth       *auth.Service
	scopes     *scope.Resolver
	objects    Objects
	meta       metastore.Store
	visibility *visibility.Service
	multipart  *multipart.Coordinator
	logger     logging.Logger
}

// NewRouter wires every route onto a chi router.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		auth:       d.Auth,
		scopes:     d.Scopes,
		objects:    d.Objects,
		meta:       d.Meta,
		visibility: d.Visibility,
		multipart:  d.Multipart,
		logger:     d.Logger.With("module", "http"),
	}

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := newHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(h.logger))
	r.Use(metrics.middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/public/*", h.publicObject)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/auth/me", h.me)
			r.Get("/storage/config", h.storageConfig)

			r.Get("/files", h.listFiles)
			r.Delete("/files", h.deleteFile)
			r.Post("/files/upload", h.uploadFile)
			r.Get("/files/download", h.downloadFile)
			r.Get("/files/url", h.fileURL)
			r.Post("/files/folder", h.createFolder)
			r.Post("/files/rename", h.renameFile)
			r.Get("/files/visibility", h.getVisibility)

			r.Post("/toggle-public", h.togglePublic)

			r.Post("/multipart/initiate", h.initiateMultipart)
			r.Post("/multipart/presigned-urls", h.presignParts)
			r.Post("/multipart/complete", h.completeMultipart)
			r.Post("/multipart/abort", h.abortMultipart)
			r.Get("/multipart/parts", h.listParts)
		})
	})

	return r
}

// scopeOf returns the scope of the authenticated caller.
func (h *Handler) scopeOf(r *http.Request) scope.Scope {
	id, _ := auth.IdentityFrom(r.Context())
	return h.scopes.For(id.FolderID)
}

// authorizeKey is the single authorization-prefix check used by every route
// that takes a key.
func authorizeKey(sc scope.Scope, key string) error {
	if key == "" {
		return invalid("key is required")
	}
	if !sc.Allows(key) {
		return common.ErrForbidden
	}
	return nil
}
