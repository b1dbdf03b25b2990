package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/truonghoc/studio/internal/catalog"
	"github.com/truonghoc/studio/internal/credential"
	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/store"
	"github.com/truonghoc/studio/internal/studio"
)

// Config holds HTTP-layer settings.
type Config struct {
	// MaxUploadMB bounds a multipart request body.
	MaxUploadMB int
	// VideoTTL is how long finished videos stay downloadable.
	VideoTTL      time.Duration
	SecureCookies bool
}

const (
	defaultMaxUploadMB = 20
	defaultVideoTTL    = time.Hour
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	studio  *studio.Service
	store   *store.Store
	catalog *catalog.Catalog
	keyring *credential.Keyring
	pingers map[string]llm.Pinger
	config  Config

	guard  *inflight
	videos *videoRegistry

	// jobCtx outlives requests; video jobs run under it.
	jobCtx   context.Context
	stopJobs context.CancelFunc
}

// Deps groups the collaborators of a Handler. Keyring and Pingers are optional.
type Deps struct {
	Studio  *studio.Service
	Store   *store.Store
	Catalog *catalog.Catalog
	Keyring *credential.Keyring
	Pingers map[string]llm.Pinger
}

// New creates a new Handler.
func New(d Deps, cfg Config) *Handler {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	if cfg.VideoTTL <= 0 {
		cfg.VideoTTL = defaultVideoTTL
	}
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		studio:   d.Studio,
		store:    d.Store,
		catalog:  d.Catalog,
		keyring:  d.Keyring,
		pingers:  d.Pingers,
		config:   cfg,
		guard:    newInflight(),
		videos:   newVideoRegistry(cfg.VideoTTL),
		jobCtx:   ctx,
		stopJobs: cancel,
	}
}

// Close cancels running video jobs.
func (h *Handler) Close() {
	h.stopJobs()
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(clientIdentity)
		r.Get("/catalog", h.handleCatalog)

		r.Post("/images/career", h.handleCareerImage)
		r.Post("/images/merge", h.handleMergeImages)
		r.Post("/images/edit", h.handleEditImage)
		r.Post("/images/remove-background", h.handleRemoveBackground)
		r.Post("/images/pro", h.handleProImage)

		r.Post("/videos", h.handleStartVideo)
		r.Get("/videos/{id}", h.handleVideoStatus)
		r.Get("/videos/{id}/download", h.handleVideoDownload)

		r.Post("/exams/document", h.handleExamDocument)
		r.Post("/exams/quiz", h.handleOnlineQuiz)
		r.Post("/exams/quiz/grade", h.handleGradeQuiz)
		r.Post("/documents/convert", h.handleConvertDocument)
		r.Post("/export/word", h.handleExportWord)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Use(h.csrfMiddleware)
			r.Get("/generations", h.handleListGenerations)
			r.Get("/generations/export", h.handleExportGenerations)
			r.Get("/generations/{id}", h.handleGetGeneration)
			r.Post("/generations/prune", h.handlePruneGenerations)
			r.Post("/credential", h.handleSelectCredential)
			r.Get("/ping", h.handlePing)
		})
	})
}

// Run purges expired videos and admin sessions until ctx is done.
func (h *Handler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := h.videos.purge(now); n > 0 {
				slog.Debug("purged expired videos", "count", n)
			}
			if h.store != nil {
				if err := h.store.CleanupExpiredSessions(ctx); err != nil {
					slog.Warn("failed to clean up sessions", "error", err)
				}
			}
		}
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeAttachment(w http.ResponseWriter, contentType, fileName string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	if _, err := w.Write(data); err != nil {
		slog.Warn("write attachment", "file", fileName, "error", err)
	}
}
