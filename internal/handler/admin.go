package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/truonghoc/studio/internal/credential"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/store"
	"github.com/truonghoc/studio/internal/studio"
)

const defaultGenerationLimit = 100

// generationFilter reads capability, status, since and limit query parameters.
func generationFilter(r *http.Request) (store.GenerationFilter, error) {
	q := r.URL.Query()
	f := store.GenerationFilter{
		Capability: model.Capability(q.Get("capability")),
		Status:     model.GenerationStatus(q.Get("status")),
		Limit:      defaultGenerationLimit,
	}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, fmt.Errorf("%w: since %q", studio.ErrInvalidInput, s)
		}
		f.Since = t.UTC()
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: limit %q", studio.ErrInvalidInput, s)
		}
		f.Limit = n
	}
	return f, nil
}

func (h *Handler) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	f, err := generationFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	gens, err := h.store.ListGenerations(r.Context(), f)
	if err != nil {
		slog.Error("failed to list generations", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if gens == nil {
		gens = []model.Generation{}
	}
	writeJSON(w, http.StatusOK, gens)
}

func (h *Handler) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	g, err := h.store.GetGeneration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("failed to get generation", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if g == nil {
		http.Error(w, "generation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) handleExportGenerations(w http.ResponseWriter, r *http.Request) {
	f, err := generationFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("limit") == "" {
		f.Limit = 0
	}
	exp, err := h.store.ExportGenerations(r.Context(), f)
	if err != nil {
		slog.Error("failed to export generations", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	name := fmt.Sprintf("generations-%s.json", exp.ExportedAt.Format("20060102-150405"))
	writeAttachment(w, "application/json", name, data)
}

func (h *Handler) handlePruneGenerations(w http.ResponseWriter, r *http.Request) {
	olderThan := 30 * 24 * time.Hour
	if s := r.URL.Query().Get("older_than"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			h.writeError(w, r, fmt.Errorf("%w: older_than %q", studio.ErrInvalidInput, s))
			return
		}
		olderThan = d
	}
	n, err := h.store.PruneGenerations(r.Context(), time.Now().UTC().Add(-olderThan))
	if err != nil {
		slog.Error("failed to prune generations", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("pruned generations", "count", n, "older_than", olderThan)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

type credentialResponse struct {
	HasCredential bool   `json:"has_credential"`
	Key           string `json:"key,omitempty"`
}

// handleSelectCredential sets the active API key, or reloads it from the key
// file when the body carries none.
func (h *Handler) handleSelectCredential(w http.ResponseWriter, r *http.Request) {
	if h.keyring == nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", studio.ErrInvalidInput, credential.ErrSelectionUnavailable))
		return
	}
	var req credentialRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: request body: %v", studio.ErrInvalidInput, err))
			return
		}
	}

	if key := strings.TrimSpace(req.APIKey); key != "" {
		h.keyring.Select(key)
	} else if err := h.keyring.RequestSelection(r.Context()); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", studio.ErrInvalidInput, err))
		return
	}
	slog.Info("credential updated by admin", "auth", adminSession(r.Context()))

	has, _ := h.keyring.HasCredential(r.Context())
	writeJSON(w, http.StatusOK, credentialResponse{HasCredential: has, Key: credential.Mask(h.keyring.Key())})
}

type pingResult struct {
	Backend string `json:"backend"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// handlePing checks every configured backend.
func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.pingers))
	for name := range h.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]pingResult, 0, len(names))
	status := http.StatusOK
	for _, name := range names {
		res := pingResult{Backend: name, OK: true}
		if err := h.pingers[name].Ping(ctx); err != nil {
			res.OK = false
			res.Error = err.Error()
			status = http.StatusBadGateway
		}
		results = append(results, res)
	}
	writeJSON(w, status, results)
}
